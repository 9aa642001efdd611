package task

import (
	"fmt"
	"strings"
)

// FormatError reports an hour or minute that is not an integer.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q is not a whole number", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

// MissingFieldError reports an empty name and/or an absent date.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required field(s): " + strings.Join(e.Fields, ", ")
}

// RangeError reports an hour or minute outside its clock range.
type RangeError struct {
	Field    string
	Value    int
	Min, Max int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %d is outside %d-%d", e.Field, e.Value, e.Min, e.Max)
}
