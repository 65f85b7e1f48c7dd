package pipeline

import (
	"context"

	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/safe"
	"tracing-overlay/internal/processing/chain"
	"tracing-overlay/internal/processing/composite"
	"tracing-overlay/internal/processing/crop"
	"tracing-overlay/internal/processing/edges"
	"tracing-overlay/internal/processing/geometry"
)

const (
	StageTransform = "transform"
	StageCrop      = "crop"
	StageOutline   = "outline"
	StageComposite = "composite"
)

// NewChain builds the render stages in their fixed order. In outline mode
// the plain transform and crop are skipped because the outline stage
// replaces their output.
func NewChain() *chain.ProcessingChain {
	return chain.NewProcessingChain([]chain.ProcessingStep{
		transformStep{},
		cropStep{},
		outlineStep{},
		compositeStep{},
	})
}

type transformStep struct{}

func (transformStep) Name() string { return StageTransform }

func (transformStep) ShouldExecute(params models.Parameters) bool { return !params.Outline }

func (transformStep) Apply(ctx context.Context, frame *chain.Frame, params models.Parameters) (*safe.Mat, error) {
	return geometry.Transform(frame.Current, params.Scale, params.AngleDegrees, params.Mirror)
}

type cropStep struct{}

func (cropStep) Name() string { return StageCrop }

func (cropStep) ShouldExecute(params models.Parameters) bool {
	return !params.Outline && !params.CropBounds().IsFull()
}

func (cropStep) Apply(ctx context.Context, frame *chain.Frame, params models.Parameters) (*safe.Mat, error) {
	out, degenerate, err := crop.Crop(frame.Current, params.CropBounds())
	if err != nil {
		return nil, err
	}
	frame.Degenerate = degenerate
	return out, nil
}

// outlineStep recomputes the geometry from the untouched source, so the
// crop never reaches the detector, and draws the edges of that transformed
// raster. The transparent area around a rotated footprint has zero
// luminance, which makes the footprint border an edge.
type outlineStep struct{}

func (outlineStep) Name() string { return StageOutline }

func (outlineStep) ShouldExecute(params models.Parameters) bool { return params.Outline }

func (outlineStep) Apply(ctx context.Context, frame *chain.Frame, params models.Parameters) (*safe.Mat, error) {
	transformed, err := geometry.Transform(frame.Source, params.Scale, params.AngleDegrees, params.Mirror)
	if err != nil {
		return nil, err
	}
	defer transformed.Close()

	frame.Degenerate = false
	return edges.ExtractEdges(transformed, params.Threshold1, params.Threshold2, params.OutlineColor)
}

type compositeStep struct{}

func (compositeStep) Name() string { return StageComposite }

func (compositeStep) ShouldExecute(params models.Parameters) bool {
	return params.Transparency != composite.Opaque
}

func (compositeStep) Apply(ctx context.Context, frame *chain.Frame, params models.Parameters) (*safe.Mat, error) {
	return composite.Composite(frame.Current, params.Transparency)
}
