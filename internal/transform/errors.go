package transform

import "fmt"

// MissingFieldError reports a required key path absent from a payload.
type MissingFieldError struct {
	Source string
	Kind   string
	Field  string
	Path   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("transform: %s %s: missing %s (%s)", e.Source, e.Kind, e.Field, e.Path)
}

// InvalidCoordinateError reports a spatial record whose latitude or
// longitude is not numeric.
type InvalidCoordinateError struct {
	Source string
	ID     string
	Value  any
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("transform: %s %s: invalid coordinate %v", e.Source, e.ID, e.Value)
}
