package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// configCommand prints the effective configuration as TOML.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := c.Config.Encode()
			if err != nil {
				return err
			}
			if c.Config.Path != "" {
				fmt.Fprintf(c.out, "# %s\n", c.Config.Path)
			}
			fmt.Fprint(c.out, text)
			return nil
		},
	}
}
