package components

import "tracing-overlay/internal/models"

const (
	LabelColumnWidth = 110
	ControlPadding   = 4
	SliderMinWidth   = 220
	// ThresholdSliderMax bounds the Canny sliders; the parameter itself has no
	// upper limit.
	ThresholdSliderMax = 500
)

// ParameterHandler receives every control change as one typed message.
type ParameterHandler func(models.ParameterChanged)

// InvalidInputHandler is told about text input that did not parse.
type InvalidInputHandler func(field models.Field, text string)
