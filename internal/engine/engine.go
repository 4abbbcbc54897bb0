package engine

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/roach88/attest/internal/script"
)

// Engine parses Starlark source and creates instances.
//
// Thread-safety: Engine is immutable after construction and safe for
// concurrent use. Instances it creates are not.
type Engine struct {
	fileOpts    *syntax.FileOptions
	predeclared starlark.StringDict
	maxSteps    uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithPredeclared adds host-provided values to every instance's predeclared
// environment. Script globals may shadow them.
func WithPredeclared(values starlark.StringDict) Option {
	return func(e *Engine) {
		for name, v := range values {
			e.predeclared[name] = v
		}
	}
}

// WithFileOptions overrides the dialect options used to parse scripts.
func WithFileOptions(opts *syntax.FileOptions) Option {
	return func(e *Engine) {
		e.fileOpts = opts
	}
}

// New creates an Engine.
//
// The default dialect enables set, while loops, recursion, top-level control
// flow and global reassignment. Reassignment is what lets a script write
// f = attr(f, "test") after defining f.
func New(opts ...Option) *Engine {
	e := &Engine{
		fileOpts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
		predeclared: starlark.StringDict{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Program is a parsed Starlark file.
type Program struct {
	filename string
	src      []byte
	file     *syntax.File
}

// Filename implements script.Program.
func (p *Program) Filename() string {
	return p.filename
}

// Parse implements script.Engine.
func (e *Engine) Parse(filename string, src []byte) (script.Program, error) {
	f, err := e.fileOpts.Parse(filename, src, 0)
	if err != nil {
		return nil, parseError(err)
	}
	return &Program{filename: filename, src: src, file: f}, nil
}

// CollectMetadata implements script.Engine.
func (e *Engine) CollectMetadata(prog script.Program) (*script.Metadata, error) {
	p, err := asProgram(prog)
	if err != nil {
		return nil, err
	}
	return collectMetadata(p.file)
}

// NewInstance implements script.Engine.
func (e *Engine) NewInstance(hostIO script.IO) script.Instance {
	return newInstance(e, hostIO)
}

func asProgram(prog script.Program) (*Program, error) {
	p, ok := prog.(*Program)
	if !ok || p == nil {
		return nil, fmt.Errorf("engine: program %T was not produced by this engine", prog)
	}
	return p, nil
}
