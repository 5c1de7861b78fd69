package manifest

import "fmt"

// MissingFieldError is returned when a required field or block is absent from a document.
type MissingFieldError struct {
	// Field is the variable, key or block name that could not be found.
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}
