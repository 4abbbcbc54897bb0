package script

import (
	"context"
	"io"
)

// Program is a parsed script.
type Program interface {
	// Filename returns the name the program was parsed under.
	Filename() string
}

// IO connects an instance to its host.
type IO struct {
	// Out receives everything the script prints. Nil discards output.
	Out io.Writer

	// Input answers the script's requests for a line of input.
	// Nil makes every request fail with a script error.
	Input func(prompt string) (string, error)
}

// Engine parses scripts and creates interpreter instances.
// Implementations must be safe for concurrent use; instances need not be.
type Engine interface {
	// Parse parses src. Malformed source yields a *Error of kind KindParse.
	Parse(filename string, src []byte) (Program, error)

	// CollectMetadata reads the program's declarative directives without
	// executing it. Returns nil when the program declares none.
	CollectMetadata(prog Program) (*Metadata, error)

	// NewInstance creates an interpreter instance with an empty scope.
	NewInstance(hostIO IO) Instance
}

// Instance is one interpreter with its own top-level scope.
// An instance is owned by a single goroutine.
type Instance interface {
	// Exec runs prog's top-level body. Definitions it makes join the scope
	// and are visible to later Exec and ExecFn calls.
	Exec(ctx context.Context, prog Program) error

	// ExecFn calls a callable value with args.
	ExecFn(ctx context.Context, fn Value, args []Value) (Value, error)

	// Scope returns the top-level bindings in the order they were first bound.
	Scope() []Binding
}
