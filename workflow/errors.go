package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Context.Get when a key is absent and no
	// default was supplied.
	ErrKeyNotFound = errors.New("key not found")

	// ErrServiceNotFound is returned when a named service is neither
	// registered nor backed by a declared default.
	ErrServiceNotFound = errors.New("service not found")

	// ErrAmbiguousStream is returned by StreamEvents when more than one
	// implicit run of the same workflow is in flight.
	ErrAmbiguousStream = errors.New("this workflow has multiple concurrent runs in progress and cannot stream events")

	// ErrValidation wraps every definition problem detected by New.
	ErrValidation = errors.New("invalid workflow definition")

	// ErrTimeout is returned when a run exceeds Config.Timeout without
	// producing a stop event.
	ErrTimeout = errors.New("workflow run timed out")

	// ErrNoActiveRun is returned by Context.SendEvent when no run is bound
	// to the context.
	ErrNoActiveRun = errors.New("no active run bound to context")

	// ErrContextInUse is returned when a run is started on a Context that
	// is still bound to another run.
	ErrContextInUse = errors.New("context is bound to another run")
)

// StepPanicError carries a value recovered from a panicking step.
type StepPanicError struct {
	Step  string
	Value any
}

func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.Step, e.Value)
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
