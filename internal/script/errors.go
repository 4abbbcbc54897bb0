package script

import (
	"errors"
	"fmt"
)

// Kind categorizes script errors.
type Kind string

const (
	// KindParse indicates malformed source text.
	KindParse Kind = "parse"

	// KindRuntime indicates an error raised while executing a program or callable.
	KindRuntime Kind = "runtime"

	// KindTimeout indicates execution was cancelled because its deadline passed.
	KindTimeout Kind = "timeout"
)

// Error is an error the interpreter attributes to the script being run.
//
// It is the only error type the harness recovers from. Detail carries the
// interpreter's rendered description (message plus backtrace where the
// interpreter provides one) and is what reporters print beneath a failure.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the interpreter-native error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Describe returns the rendered description of the error.
// Falls back to the message when the interpreter supplied no detail.
func (e *Error) Describe() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error()
}

// NewError creates a script error of the given kind wrapping err.
func NewError(kind Kind, message, detail string, err error) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail, Err: err}
}

// AsError reports whether err is (or wraps) a script error and returns it.
// Uses errors.As to handle wrapped errors.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsParseError returns true if err is a script error of kind KindParse.
func IsParseError(err error) bool {
	se, ok := AsError(err)
	return ok && se.Kind == KindParse
}
