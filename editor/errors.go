package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned by host-facing helpers when an element id is
	// absent. Store operations themselves report absence with a bool.
	ErrNotFound = errors.New("element not found")
	// ErrInvariant means a snapshot would break element id uniqueness.
	ErrInvariant = errors.New("design invariant violated")
)

// ValidationError describes rejected user input. The model is unchanged
// whenever one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
