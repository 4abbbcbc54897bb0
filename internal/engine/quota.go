package engine

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/roach88/attest/internal/script"
)

// StepsExceededError is returned when a single Exec or ExecFn call runs past
// the engine's step quota.
//
// The quota bounds interpreter work rather than wall-clock time, so a runaway
// loop fails the same way on every machine.
type StepsExceededError struct {
	Steps uint64 // Steps taken when execution stopped
	Limit uint64 // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("execution exceeded max steps quota: %d steps >= %d limit", e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}

// WithMaxSteps bounds the interpreter steps of each Exec or ExecFn call.
// Zero means unlimited.
func WithMaxSteps(n uint64) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// applyQuota arms the step limit on a fresh thread.
func applyQuota(thread *starlark.Thread, limit uint64) {
	if limit > 0 {
		thread.SetMaxExecutionSteps(limit)
	}
}

// quotaError reports whether thread stopped because it hit limit. A spent
// quota is reported as a timeout.
func quotaError(thread *starlark.Thread, limit uint64, err error) *script.Error {
	if limit == 0 || thread.ExecutionSteps() < limit {
		return nil
	}
	se := &StepsExceededError{Steps: thread.ExecutionSteps(), Limit: limit}
	return script.NewError(script.KindTimeout, se.Error(), "", errors.Join(se, err))
}
