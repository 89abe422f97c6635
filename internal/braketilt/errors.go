package braketilt

import (
	"errors"
	"fmt"
)

// Input errors reported by Tick.Validate.
var (
	// ErrNegativeDt indicates a tick whose elapsed time runs backwards.
	ErrNegativeDt = errors.New("braketilt: negative dt")

	// ErrNonFinite indicates a NaN or Inf in one of the tick inputs.
	ErrNonFinite = errors.New("braketilt: non-finite input")
)

// InputError names the offending field of a rejected tick.
type InputError struct {
	Field   string
	Value   float64
	Wrapped error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s (%s=%g)", e.Wrapped.Error(), e.Field, e.Value)
}

func (e *InputError) Unwrap() error {
	return e.Wrapped
}
