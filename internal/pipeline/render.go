package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/conversion"
	"tracing-overlay/internal/opencv/safe"
	"tracing-overlay/internal/processing/chain"
	"tracing-overlay/internal/processing/geometry"
)

// Result is the output of one render. Raster is owned by whoever called
// Render. An empty Result means there was nothing to render.
type Result struct {
	Raster     *safe.Mat
	WindowSize int
	Degenerate bool
	// Err is the stage failure that was replaced by a transparent pixel.
	Err error
}

func (r Result) Empty() bool {
	return r.Raster == nil
}

func (r Result) Bounds() image.Rectangle {
	if r.Raster == nil {
		return image.Rectangle{}
	}
	return r.Raster.Bounds()
}

func (r Result) Close() {
	r.Raster.Close()
}

// Renderer turns a source image and a parameter set into a Result. It holds
// no per render state and may be reused.
type Renderer struct {
	chain         *chain.ProcessingChain
	logger        Logger
	timingTracker TimingTracker
	minWindowSize int
	maxPixels     int64
}

func NewRenderer(log Logger, tracker TimingTracker) *Renderer {
	if log == nil {
		log = logger.NoOpLogger{}
	}

	c := NewChain()
	if tracker != nil {
		c.SetTimer(tracker)
	}

	return &Renderer{
		chain:         c,
		logger:        log,
		timingTracker: tracker,
		minWindowSize: MinWindowSize,
		maxPixels:     geometry.MaxOutputPixels,
	}
}

// SetMinWindowSize changes the window floor. Values below one are ignored.
func (r *Renderer) SetMinWindowSize(size int) {
	if size >= 1 {
		r.minWindowSize = size
	}
}

// SetMaxOutputPixels lowers the pixel budget of the transformed raster.
// Values outside (0, geometry.MaxOutputPixels] are ignored.
func (r *Renderer) SetMaxOutputPixels(pixels int64) {
	if pixels > 0 && pixels <= geometry.MaxOutputPixels {
		r.maxPixels = pixels
	}
}

// Stages lists the stage names in execution order.
func (r *Renderer) Stages() []string {
	return r.chain.GetStepNames()
}

// Render runs every stage on source. It never fails: a missing source
// gives an empty Result, and a stage error or a zero area output gives a
// 1x1 transparent raster.
func (r *Renderer) Render(ctx context.Context, source *models.SourceImage, params models.Parameters) Result {
	if !source.Valid() {
		r.logger.Debug("Renderer", "render skipped", map[string]interface{}{
			"reason": models.NoSourceLoaded.String(),
		})
		return Result{}
	}

	fitted, cut := geometry.FitScaleWithin(source.Mat.Cols(), source.Mat.Rows(), params.Scale, params.AngleDegrees, r.maxPixels)
	if cut {
		verr := models.NewValidationError(models.FieldScale.String(), params.Scale,
			fmt.Sprintf("output would exceed %d pixels, scale reduced to %.4f", r.maxPixels, fitted))
		r.logger.Warning("Renderer", verr.Error(), verr.Fields())
		params.Scale = fitted
	}

	start := time.Now()
	frame, err := r.chain.Execute(ctx, source.Mat, params)
	if err != nil {
		r.logger.Error("Renderer", err, params.Fields())
		return r.fallback(err)
	}

	if frame.Current.Area() == 0 {
		frame.Current.Close()
		return r.fallback(fmt.Errorf("render produced no pixels: %w", models.DegenerateGeometry))
	}

	if frame.Degenerate {
		r.logger.Warning("Renderer", "crop selects no pixels", map[string]interface{}{
			"kind": models.DegenerateGeometry.String(),
			"crop": params.Fields()["crop"],
		})
	}

	result := Result{
		Raster:     frame.Current,
		WindowSize: WindowSizeWithMin(frame.Current.Cols(), frame.Current.Rows(), r.minWindowSize),
		Degenerate: frame.Degenerate,
	}

	fields := map[string]interface{}{
		"width":       frame.Current.Cols(),
		"height":      frame.Current.Rows(),
		"window_size": result.WindowSize,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if summary, ok := r.timingTracker.(StageTimings); ok {
		for k, v := range summary.Summary() {
			fields[k] = v
		}
	}
	r.logger.Debug("Renderer", "render complete", fields)

	return result
}

func (r *Renderer) fallback(cause error) Result {
	pixel, err := conversion.NewTransparent(1, 1)
	if err != nil {
		r.logger.Error("Renderer", err, map[string]interface{}{"stage": "fallback"})
		return Result{Err: cause}
	}

	return Result{
		Raster:     pixel,
		WindowSize: r.minWindowSize,
		Degenerate: true,
		Err:        cause,
	}
}

// Render is a convenience wrapper around a fresh Renderer without logging
// or timing.
func Render(ctx context.Context, source *models.SourceImage, params models.Parameters) Result {
	return NewRenderer(nil, nil).Render(ctx, source, params)
}
