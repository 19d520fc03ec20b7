package pipeline

import (
	"errors"
	"fmt"
)

// IterationsExceededError is returned when a fixpoint run is still
// changing the plan after the maximum number of rounds.
type IterationsExceededError struct {
	RunID      string
	Iterations int
	Limit      int
}

func (e *IterationsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max iterations: %d rounds > %d limit",
		e.RunID, e.Iterations, e.Limit)
}

// PassError reports a pass that panicked. Err is the panic value when it
// was an error, such as a *plan.MismatchError.
type PassError struct {
	RunID string
	Pass  string
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("run %s: pass %s: %v", e.RunID, e.Pass, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

// IsQuotaError reports whether err carries an *IterationsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var ie *IterationsExceededError
	return errors.As(err, &ie)
}

// IsPassError reports whether err carries a *PassError.
func IsPassError(err error) bool {
	var pe *PassError
	return errors.As(err, &pe)
}
