package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/memory"
	"tracing-overlay/internal/pipeline"
	"tracing-overlay/internal/processing/edges"
	"tracing-overlay/internal/timing"

	"github.com/spf13/cobra"
)

// renderOpts holds the render command flags. Only flags given on the command
// line are applied; the rest keep the parameter defaults.
type renderOpts struct {
	output       string
	scale        float64
	angle        float64
	mirror       bool
	cropLeft     float64
	cropRight    float64
	cropTop      float64
	cropBottom   float64
	opacity      float64 // percent
	transparency int     // 0..255
	outline      bool
	threshold1   int
	threshold2   int
	color        string
}

func defaultRenderOpts() renderOpts {
	p := models.DefaultParameters()
	return renderOpts{
		scale:        p.Scale,
		angle:        p.AngleDegrees,
		mirror:       p.Mirror,
		cropLeft:     p.CropLeft,
		cropRight:    p.CropRight,
		cropTop:      p.CropTop,
		cropBottom:   p.CropBottom,
		opacity:      models.PercentFromOpacity(p.Transparency),
		transparency: p.Transparency,
		outline:      p.Outline,
		threshold1:   p.Threshold1,
		threshold2:   p.Threshold2,
		color:        p.OutlineColor.String(),
	}
}

// renderFlags maps each parameter flag to the message it produces, in the
// order messages are dispatched.
var renderFlags = []struct {
	name  string
	field models.Field
	value func(*renderOpts) interface{}
}{
	{"scale", models.FieldScale, func(o *renderOpts) interface{} { return o.scale }},
	{"angle", models.FieldAngle, func(o *renderOpts) interface{} { return o.angle }},
	{"mirror", models.FieldMirror, func(o *renderOpts) interface{} { return o.mirror }},
	{"crop-left", models.FieldCropLeft, func(o *renderOpts) interface{} { return o.cropLeft }},
	{"crop-right", models.FieldCropRight, func(o *renderOpts) interface{} { return o.cropRight }},
	{"crop-top", models.FieldCropTop, func(o *renderOpts) interface{} { return o.cropTop }},
	{"crop-bottom", models.FieldCropBottom, func(o *renderOpts) interface{} { return o.cropBottom }},
	{"transparency", models.FieldTransparency, func(o *renderOpts) interface{} { return o.transparency }},
	{"opacity", models.FieldTransparencyPercent, func(o *renderOpts) interface{} { return o.opacity }},
	{"outline", models.FieldOutline, func(o *renderOpts) interface{} { return o.outline }},
	{"threshold1", models.FieldThreshold1, func(o *renderOpts) interface{} { return o.threshold1 }},
	{"threshold2", models.FieldThreshold2, func(o *renderOpts) interface{} { return o.threshold2 }},
	{"color", models.FieldOutlineColor, func(o *renderOpts) interface{} { return o.color }},
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := defaultRenderOpts()

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render an overlay to an image file without opening a window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages := renderMessages(&opts, cmd.Flags().Changed)
			return c.runRender(cmd.Context(), args[0], opts.output, messages)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default <input>_overlay.<export_format>)")
	f.Float64Var(&opts.scale, "scale", opts.scale, "scale factor")
	f.Float64Var(&opts.angle, "angle", opts.angle, "clockwise rotation in degrees")
	f.BoolVar(&opts.mirror, "mirror", opts.mirror, "mirror horizontally before rotating")
	f.Float64Var(&opts.cropLeft, "crop-left", opts.cropLeft, "crop left offset, percent of width")
	f.Float64Var(&opts.cropRight, "crop-right", opts.cropRight, "crop width from the left offset, percent of width")
	f.Float64Var(&opts.cropTop, "crop-top", opts.cropTop, "crop top offset, percent of height")
	f.Float64Var(&opts.cropBottom, "crop-bottom", opts.cropBottom, "crop height from the top offset, percent of height")
	f.Float64Var(&opts.opacity, "opacity", opts.opacity, "opacity in percent")
	f.IntVar(&opts.transparency, "transparency", opts.transparency, "alpha scale 0-255 (255 is opaque)")
	f.BoolVar(&opts.outline, "outline", opts.outline, "draw only the Canny edges of the source")
	f.IntVar(&opts.threshold1, "threshold1", opts.threshold1, "Canny low threshold")
	f.IntVar(&opts.threshold2, "threshold2", opts.threshold2, "Canny high threshold")
	f.StringVar(&opts.color, "color", opts.color, "outline colour: "+strings.Join(edges.PaletteNames(), ", "))

	cmd.MarkFlagsMutuallyExclusive("opacity", "transparency")

	return cmd
}

// renderMessages turns the flags that were set into parameter messages.
func renderMessages(opts *renderOpts, changed func(string) bool) []models.ParameterChanged {
	var messages []models.ParameterChanged
	for _, rf := range renderFlags {
		if changed(rf.name) {
			messages = append(messages, models.ParameterChanged{Field: rf.field, Value: rf.value(opts)})
		}
	}
	return messages
}

func (c *CLI) runRender(ctx context.Context, input, output string, messages []models.ParameterChanged) error {
	tracker := timing.NewTracker()
	mm := memory.NewManager(c.Logger)

	coord := pipeline.NewCoordinator(c.Logger, tracker, mm)
	defer func() {
		coord.Close()
		mm.Cleanup()
	}()

	coord.Renderer().SetMinWindowSize(c.Config.MinWindowSize)
	coord.Saver().SetJPEGQuality(c.Config.JPEGQuality)
	if err := coord.Saver().SetDefaultFormat(c.Config.ExportFormat); err != nil {
		return err
	}

	snapshot, err := coord.OpenPath(input)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		snapshot = coord.Dispatch(msg)
	}

	if output == "" {
		output = defaultOutputPath(input, c.Config.ExportFormat)
	}
	if err := coord.ExportPath(output); err != nil {
		return err
	}

	c.Logger.Debug("Render", "stage timings", tracker.Summary())

	width, height := 0, 0
	if !snapshot.Empty() {
		b := snapshot.Image.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	note := ""
	if snapshot.Degenerate {
		note = " (empty crop)"
		c.Logger.Warning("Render", "crop selects no pixels", snapshot.Parameters.Fields())
	}

	fmt.Fprintf(c.out, "%s: %dx%d, window %d%s\n", output, width, height, snapshot.WindowSize, note)
	return nil
}

var formatExtensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"bmp":  ".bmp",
	"tiff": ".tiff",
	"webp": ".webp",
}

// defaultOutputPath derives <dir>/<name>_overlay.<ext> from the input path.
func defaultOutputPath(input, format string) string {
	ext, ok := formatExtensions[format]
	if !ok {
		ext = ".png"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_overlay" + ext
}
