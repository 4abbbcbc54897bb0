package harness

import (
	"fmt"
)

// ImportsError reports an imports directive of the wrong shape.
// It means the test file itself is malformed and is always harness-fatal.
type ImportsError struct {
	File  string
	Value any
}

func (e *ImportsError) Error() string {
	return fmt.Sprintf("%s: unexpected type of imports: want a list of strings, got %T", e.File, e.Value)
}

// FatalError is a harness-fatal error raised while running one file.
type FatalError struct {
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// PanicError is a Go panic recovered while running a step.
type PanicError struct {
	Label string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during %s: %v", e.Label, e.Value)
}
