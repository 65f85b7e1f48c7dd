package models

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"tracing-overlay/internal/processing/composite"
	"tracing-overlay/internal/processing/crop"
	"tracing-overlay/internal/processing/edges"
	"tracing-overlay/internal/processing/geometry"
)

// Parameters is the full render state of the overlay. The zero value is not
// useful; start from DefaultParameters.
type Parameters struct {
	Scale        float64
	AngleDegrees float64
	Mirror       bool

	CropLeft   float64
	CropRight  float64
	CropTop    float64
	CropBottom float64

	Transparency int

	Outline      bool
	Threshold1   int
	Threshold2   int
	OutlineColor edges.PaletteColor
}

func DefaultParameters() Parameters {
	return Parameters{
		Scale:        1.0,
		AngleDegrees: 0,
		Mirror:       false,
		CropLeft:     crop.Full.Left,
		CropRight:    crop.Full.Right,
		CropTop:      crop.Full.Top,
		CropBottom:   crop.Full.Bottom,
		Transparency: composite.Opaque,
		Outline:      false,
		Threshold1:   edges.DefaultLowThreshold,
		Threshold2:   edges.DefaultHighThreshold,
		OutlineColor: edges.White,
	}
}

// CropBounds returns the crop percentages as a crop.Bounds.
func (p Parameters) CropBounds() crop.Bounds {
	return crop.Bounds{
		Left:   p.CropLeft,
		Right:  p.CropRight,
		Top:    p.CropTop,
		Bottom: p.CropBottom,
	}
}

// Field names one entry of Parameters, plus the Reset pseudo field.
type Field int

const (
	FieldScale Field = iota + 1
	FieldAngle
	FieldMirror
	FieldCropLeft
	FieldCropRight
	FieldCropTop
	FieldCropBottom
	FieldTransparency
	// FieldTransparencyPercent takes the 0..100 opacity used by sliders.
	FieldTransparencyPercent
	FieldOutline
	FieldThreshold1
	FieldThreshold2
	FieldOutlineColor
	// FieldReset restores every field to its default. The value is ignored.
	FieldReset
)

var fieldNames = map[Field]string{
	FieldScale:               "scale",
	FieldAngle:               "angle",
	FieldMirror:              "mirror",
	FieldCropLeft:            "crop_left",
	FieldCropRight:           "crop_right",
	FieldCropTop:             "crop_top",
	FieldCropBottom:          "crop_bottom",
	FieldTransparency:        "transparency",
	FieldTransparencyPercent: "opacity_percent",
	FieldOutline:             "outline",
	FieldThreshold1:          "threshold1",
	FieldThreshold2:          "threshold2",
	FieldOutlineColor:        "outline_color",
	FieldReset:               "reset",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField is the inverse of Field.String.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// ParameterChanged carries one updated field from a controller.
type ParameterChanged struct {
	Field Field
	Value interface{}
}

func (m ParameterChanged) String() string {
	return fmt.Sprintf("%s=%v", m.Field, m.Value)
}

// ParameterRange defines the valid range of a numeric field.
type ParameterRange struct {
	Min float64
	Max float64
}

// Ranges lists the clamp range of every numeric field. Angle has none.
var Ranges = map[Field]ParameterRange{
	FieldScale:               {Min: geometry.MinScale, Max: geometry.MaxScale},
	FieldCropLeft:            {Min: 0, Max: 100},
	FieldCropRight:           {Min: 0, Max: 100},
	FieldCropTop:             {Min: 0, Max: 100},
	FieldCropBottom:          {Min: 0, Max: 100},
	FieldTransparency:        {Min: composite.Transparent, Max: composite.Opaque},
	FieldTransparencyPercent: {Min: 0, Max: 100},
	FieldThreshold1:          {Min: 0, Max: math.MaxInt32},
	FieldThreshold2:          {Min: 0, Max: math.MaxInt32},
}

// Apply returns p with msg applied. Out of range values are clamped, unknown
// colours fall back to White and values of the wrong type leave p unchanged;
// in each of those cases the returned error is a *ValidationError describing
// the adjustment and the returned Parameters are still valid to render.
func (p Parameters) Apply(msg ParameterChanged) (Parameters, error) {
	switch msg.Field {
	case FieldReset:
		return DefaultParameters(), nil

	case FieldMirror, FieldOutline:
		v, ok := msg.Value.(bool)
		if !ok {
			return p, typeError(msg, "bool")
		}
		if msg.Field == FieldMirror {
			p.Mirror = v
		} else {
			p.Outline = v
		}
		return p, nil

	case FieldOutlineColor:
		return p.applyColor(msg)

	case FieldAngle:
		v, ok := toFloat(msg.Value)
		if !ok {
			return p, typeError(msg, "number")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.AngleDegrees = 0
			return p, NewValidationError(msg.Field.String(), msg.Value, "angle must be finite, using 0")
		}
		p.AngleDegrees = v
		return p, nil
	}

	r, known := Ranges[msg.Field]
	if !known {
		return p, NewValidationError(msg.Field.String(), msg.Value, "unknown parameter")
	}

	v, ok := toFloat(msg.Value)
	if !ok {
		return p, typeError(msg, "number")
	}

	clamped, verr := clamp(msg, v, r)

	switch msg.Field {
	case FieldScale:
		p.Scale = clamped
	case FieldCropLeft:
		p.CropLeft = clamped
	case FieldCropRight:
		p.CropRight = clamped
	case FieldCropTop:
		p.CropTop = clamped
	case FieldCropBottom:
		p.CropBottom = clamped
	case FieldTransparency:
		p.Transparency = int(math.Round(clamped))
	case FieldTransparencyPercent:
		p.Transparency = OpacityFromPercent(clamped)
	case FieldThreshold1:
		p.Threshold1 = int(math.Round(clamped))
	case FieldThreshold2:
		p.Threshold2 = int(math.Round(clamped))
	}

	if verr != nil {
		return p, verr
	}
	return p, nil
}

func (p Parameters) applyColor(msg ParameterChanged) (Parameters, error) {
	switch v := msg.Value.(type) {
	case edges.PaletteColor:
		if !v.Valid() {
			p.OutlineColor = edges.White
			return p, unknownColor(msg)
		}
		p.OutlineColor = v
		return p, nil
	case string:
		c, known := edges.ParsePaletteColor(v)
		p.OutlineColor = c
		if !known {
			return p, unknownColor(msg)
		}
		return p, nil
	default:
		return p, typeError(msg, "palette colour")
	}
}

// Normalize clamps every field of p. It is used for parameters that did not
// come through Apply, such as command line flags.
func (p Parameters) Normalize() (Parameters, []error) {
	var problems []error

	messages := []ParameterChanged{
		{FieldScale, p.Scale},
		{FieldAngle, p.AngleDegrees},
		{FieldCropLeft, p.CropLeft},
		{FieldCropRight, p.CropRight},
		{FieldCropTop, p.CropTop},
		{FieldCropBottom, p.CropBottom},
		{FieldTransparency, p.Transparency},
		{FieldThreshold1, p.Threshold1},
		{FieldThreshold2, p.Threshold2},
		{FieldOutlineColor, p.OutlineColor},
	}

	for _, msg := range messages {
		next, err := p.Apply(msg)
		if err != nil {
			problems = append(problems, err)
		}
		p = next
	}

	return p, problems
}

// Fields renders p as structured log fields.
func (p Parameters) Fields() map[string]interface{} {
	return map[string]interface{}{
		"scale":         p.Scale,
		"angle":         p.AngleDegrees,
		"mirror":        p.Mirror,
		"crop":          []float64{p.CropLeft, p.CropRight, p.CropTop, p.CropBottom},
		"transparency":  p.Transparency,
		"outline":       p.Outline,
		"thresholds":    []int{p.Threshold1, p.Threshold2},
		"outline_color": p.OutlineColor.String(),
	}
}

// OpacityFromPercent maps a 0..100 slider value onto 0..255 transparency.
func OpacityFromPercent(percent float64) int {
	percent = crop.ClampPercent(percent)
	return int(math.Round(percent * composite.Opaque / 100))
}

// PercentFromOpacity is the inverse of OpacityFromPercent, rounded.
func PercentFromOpacity(transparency int) float64 {
	transparency = composite.ClampTransparency(transparency)
	return math.Round(float64(transparency) * 100 / composite.Opaque)
}

func clamp(msg ParameterChanged, v float64, r ParameterRange) (float64, error) {
	switch {
	case math.IsNaN(v):
		return r.Min, NewValidationError(msg.Field.String(), msg.Value,
			fmt.Sprintf("not a number, using minimum %v", r.Min))
	case v < r.Min:
		return r.Min, NewValidationError(msg.Field.String(), msg.Value,
			fmt.Sprintf("value below minimum, clamped to %v", r.Min))
	case v > r.Max:
		return r.Max, NewValidationError(msg.Field.String(), msg.Value,
			fmt.Sprintf("value above maximum, clamped to %v", r.Max))
	default:
		return v, nil
	}
}

func typeError(msg ParameterChanged, want string) error {
	return NewValidationError(msg.Field.String(), msg.Value,
		fmt.Sprintf("expected %s, got %T; value ignored", want, msg.Value))
}

func unknownColor(msg ParameterChanged) error {
	return &ValidationError{
		Parameter: msg.Field.String(),
		Value:     msg.Value,
		Kind:      UnknownPaletteColor,
		Message:   "unknown colour, using White",
	}
}

// toFloat accepts every Go numeric kind, named types included.
func toFloat(value interface{}) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	default:
		return 0, false
	}
}
