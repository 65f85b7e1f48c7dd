package models

import "fmt"

// ErrorKind classifies the non-fatal problems the overlay reports. Kinds are
// errors themselves so callers can match them with errors.Is.
type ErrorKind int

const (
	InvalidParameter ErrorKind = iota + 1
	NoSourceLoaded
	DegenerateGeometry
	UnknownPaletteColor
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case NoSourceLoaded:
		return "NoSourceLoaded"
	case DegenerateGeometry:
		return "DegenerateGeometry"
	case UnknownPaletteColor:
		return "UnknownPaletteColor"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) Error() string {
	return k.String()
}

// ValidationError represents a parameter that was clamped, replaced by a
// fallback or ignored.
type ValidationError struct {
	Parameter string
	Value     interface{}
	Kind      ErrorKind
	Message   string
}

// NewValidationError creates an InvalidParameter validation error.
func NewValidationError(parameter string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Parameter: parameter,
		Value:     value,
		Kind:      InvalidParameter,
		Message:   message,
	}
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter '%s' with value '%v': %s",
		ve.Parameter, ve.Value, ve.Message)
}

func (ve *ValidationError) Unwrap() error {
	return ve.Kind
}

// Fields renders the error as structured log fields.
func (ve *ValidationError) Fields() map[string]interface{} {
	return map[string]interface{}{
		"parameter": ve.Parameter,
		"value":     ve.Value,
		"kind":      ve.Kind.String(),
	}
}
