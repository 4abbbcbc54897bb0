package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/roach88/attest/internal/script"
)

// errNoInput is returned by input() when the host provides no input source.
var errNoInput = errors.New("standard input is not available")

// Instance is one Starlark interpreter with a top-level scope shared by every
// program it executes.
type Instance struct {
	eng      *Engine
	hostIO   script.IO
	builtins starlark.StringDict

	globals starlark.StringDict
	order   []string
}

func newInstance(e *Engine, hostIO script.IO) *Instance {
	inst := &Instance{
		eng:     e,
		hostIO:  hostIO,
		globals: starlark.StringDict{},
	}
	inst.builtins = starlark.StringDict{
		"attr":  starlark.NewBuiltin("attr", attrBuiltin),
		"input": starlark.NewBuiltin("input", inst.input),
	}
	return inst
}

// Exec implements script.Instance.
//
// Globals the program binds are merged into the scope even when execution
// fails part way, so definitions made before the failure stay visible.
func (i *Instance) Exec(ctx context.Context, prog script.Program) error {
	p, err := asProgram(prog)
	if err != nil {
		return err
	}

	// Resolution annotates the syntax tree, so each execution works on a
	// fresh parse of the source.
	f, err := i.eng.fileOpts.Parse(p.filename, p.src, 0)
	if err != nil {
		return parseError(err)
	}

	env := i.environment()
	compiled, err := starlark.FileProgram(f, env.Has)
	if err != nil {
		return resolveError(err)
	}

	thread, done := i.newThread(ctx, p.filename)
	defer done()

	globals, runErr := compiled.Init(thread, env)
	i.merge(f.Module, globals)
	if runErr != nil {
		return i.fail(ctx, thread, runErr)
	}
	return nil
}

// ExecFn implements script.Instance.
func (i *Instance) ExecFn(ctx context.Context, fn script.Value, args []script.Value) (script.Value, error) {
	callable, ok := fn.Payload.(starlark.Callable)
	if !ok {
		return script.Value{}, fmt.Errorf("engine: value of type %s is not callable", fn.Type)
	}

	tuple := make(starlark.Tuple, len(args))
	for n, arg := range args {
		v, ok := arg.Payload.(starlark.Value)
		if !ok {
			return script.Value{}, fmt.Errorf("engine: argument %d has foreign payload %T", n, arg.Payload)
		}
		tuple[n] = v
	}

	thread, done := i.newThread(ctx, callable.Name())
	defer done()

	result, err := starlark.Call(thread, callable, tuple, nil)
	if err != nil {
		return script.Value{}, i.fail(ctx, thread, err)
	}
	return toValue(result), nil
}

// Scope implements script.Instance.
func (i *Instance) Scope() []script.Binding {
	out := make([]script.Binding, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, script.Binding{Name: name, Value: toValue(i.globals[name])})
	}
	return out
}

// environment returns the predeclared names for the next program: host
// values, then this instance's builtins, then the scope so far.
func (i *Instance) environment() starlark.StringDict {
	env := make(starlark.StringDict, len(i.eng.predeclared)+len(i.builtins)+len(i.globals))
	for name, v := range i.eng.predeclared {
		env[name] = v
	}
	for name, v := range i.builtins {
		env[name] = v
	}
	for name, v := range i.globals {
		env[name] = v
	}
	return env
}

// merge adds a program's globals to the scope in the order the resolver
// first saw them bound. Rebinding an existing name keeps its position.
func (i *Instance) merge(module any, globals starlark.StringDict) {
	mod, ok := module.(*resolve.Module)
	if !ok {
		return
	}
	for _, b := range mod.Globals {
		name := b.First.Name
		v, ok := globals[name]
		if !ok || v == nil {
			continue
		}
		if _, seen := i.globals[name]; !seen {
			i.order = append(i.order, name)
		}
		i.globals[name] = v
	}
}

// newThread creates a thread whose execution is cancelled with ctx.
// The returned func releases the cancellation hook.
func (i *Instance) newThread(ctx context.Context, name string) (*starlark.Thread, func()) {
	out := i.hostIO.Out
	if out == nil {
		out = io.Discard
	}
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(out, msg)
		},
	}
	applyQuota(thread, i.eng.maxSteps)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, func() { stop() }
}

// fail classifies an execution error. Cancellation wins over the step quota.
func (i *Instance) fail(ctx context.Context, thread *starlark.Thread, err error) *script.Error {
	if ctx.Err() == nil {
		if qe := quotaError(thread, i.eng.maxSteps, err); qe != nil {
			return qe
		}
	}
	return execError(ctx, err)
}

// input implements input(prompt="").
func (i *Instance) input(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var prompt string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "prompt?", &prompt); err != nil {
		return nil, err
	}
	if i.hostIO.Input == nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), errNoInput)
	}
	line, err := i.hostIO.Input(prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(line), nil
}
