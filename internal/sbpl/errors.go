// internal/sbpl/errors.go
package sbpl

import "fmt"

// RangeError reports a coordinate, size, thickness or rotation value outside
// the domain the printer can represent.
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("sbpl: %s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// GeometryError reports a line length vector that is neither purely
// horizontal nor purely vertical.
type GeometryError struct {
	DX int
	DY int
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("sbpl: line vector (%d, %d) must have exactly one non-zero axis", e.DX, e.DY)
}

// ValidationError reports a barcode payload that violates the symbology's
// constraints.
type ValidationError struct {
	Symbology string
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sbpl: %s: %s", e.Symbology, e.Reason)
}

// FramingError reports packet/page open and close calls made out of order or
// left unbalanced.
type FramingError struct {
	Op     string
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("sbpl: %s: %s", e.Op, e.Reason)
}

func rangeErr(field string, value, min, max int) error {
	return &RangeError{Field: field, Value: value, Min: min, Max: max}
}

func checkRange(field string, value, min, max int) error {
	if value < min || value > max {
		return rangeErr(field, value, min, max)
	}
	return nil
}
