// Package cli implements the tracing-overlay command line.
package cli

import (
	"context"
	"io"

	"tracing-overlay/internal/app"
	"tracing-overlay/internal/config"
	"tracing-overlay/internal/logger"

	"github.com/spf13/cobra"
)

// Launcher starts the GUI. Replaced in tests.
type Launcher func(ctx context.Context, cfg config.Config, log logger.Logger, initialPath string) error

// CLI holds shared state for all commands.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool

	Config config.Config
	Logger logger.Logger
	launch Launcher
}

func New(out, errOut io.Writer) *CLI {
	return &CLI{
		out:    out,
		errOut: errOut,
		Config: config.Default(),
		Logger: logger.NoOpLogger{},
		launch: launchGUI,
	}
}

// RootCommand creates the root command with every subcommand registered.
// Running it without a subcommand opens the overlay window.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tracing-overlay [image]",
		Short: "Show an image as a scalable, rotatable tracing overlay",
		Long: `tracing-overlay shows an image in a window sized to its rotated diagonal,
with controls for scale, rotation, mirroring, cropping, opacity and an
edge-outline mode. The render subcommand applies the same pipeline headlessly.`,
		Version:           app.AppVersion,
		SilenceUsage:      true,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := ""
			if len(args) == 1 {
				initial = args[0]
			}
			return c.launch(cmd.Context(), c.Config, c.Logger, initial)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvConfigPath+" or the user config dir)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.configCommand())

	return root
}

// setup loads configuration and builds the logger before any command runs.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	}

	c.Config = cfg
	c.Logger = logger.New(logger.Options{
		Level:  cfg.LogLevel,
		JSON:   cfg.JSONLogs,
		Writer: c.errOut,
	})
	return nil
}

func launchGUI(ctx context.Context, cfg config.Config, log logger.Logger, initialPath string) error {
	application, err := app.NewApplication(cfg, log)
	if err != nil {
		return err
	}
	return application.Run(ctx, initialPath)
}
