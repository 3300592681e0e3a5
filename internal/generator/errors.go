package generator

import (
	"errors"
	"fmt"
)

// ErrGeneration is the sentinel every GenerationError unwraps to.
var ErrGeneration = errors.New("generation failed")

// GenerationError names the type whose generation failed. The cause stays
// reachable with errors.As (ValidationError, BackendError, SchemaError).
type GenerationError struct {
	Type     string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("generate %s: after %d attempts: %v", e.Type, e.Attempts, e.Err)
	}
	return fmt.Sprintf("generate %s: %v", e.Type, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }
