package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/script"
)

// fakeEngine is a scripted interpreter. A file's source text is the key of
// the fakeProgram that describes it.
type fakeEngine struct {
	mu        sync.Mutex
	programs  map[string]*fakeProgram
	instances int
}

type fakeProgram struct {
	parseErr error
	meta     *script.Metadata
	metaErr  error
	run      func(inst *fakeInstance) error
}

type fakeParsed struct {
	filename string
	prog     *fakeProgram
}

func (p *fakeParsed) Filename() string { return p.filename }

func newFakeEngine() *fakeEngine {
	return &fakeEngine{programs: make(map[string]*fakeProgram)}
}

func (e *fakeEngine) define(key string, prog *fakeProgram) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs[key] = prog
}

func (e *fakeEngine) Parse(filename string, src []byte) (script.Program, error) {
	e.mu.Lock()
	prog, ok := e.programs[strings.TrimSpace(string(src))]
	e.mu.Unlock()
	if !ok {
		return nil, script.NewError(script.KindParse, "unknown program "+string(src), "", nil)
	}
	if prog.parseErr != nil {
		return nil, prog.parseErr
	}
	return &fakeParsed{filename: filename, prog: prog}, nil
}

func (e *fakeEngine) CollectMetadata(prog script.Program) (*script.Metadata, error) {
	p := prog.(*fakeParsed)
	return p.prog.meta, p.prog.metaErr
}

func (e *fakeEngine) NewInstance(hostIO script.IO) script.Instance {
	e.mu.Lock()
	e.instances++
	e.mu.Unlock()
	return &fakeInstance{hostIO: hostIO, values: make(map[string]script.Value)}
}

// fakeInstance keeps an ordered scope and records what ran.
type fakeInstance struct {
	hostIO script.IO
	order  []string
	values map[string]script.Value
	log    []string
}

func (i *fakeInstance) Exec(_ context.Context, prog script.Program) error {
	p := prog.(*fakeParsed)
	i.log = append(i.log, "exec "+filepath.Base(p.filename))
	if p.prog.run == nil {
		return nil
	}
	return p.prog.run(i)
}

func (i *fakeInstance) ExecFn(_ context.Context, fn script.Value, _ []script.Value) (script.Value, error) {
	call, ok := fn.Payload.(func(*fakeInstance) error)
	if !ok {
		return script.Value{}, fmt.Errorf("fake: not callable: %T", fn.Payload)
	}
	return script.Value{Type: "none"}, call(i)
}

func (i *fakeInstance) Scope() []script.Binding {
	out := make([]script.Binding, len(i.order))
	for n, name := range i.order {
		out[n] = script.Binding{Name: name, Value: i.values[name]}
	}
	return out
}

func (i *fakeInstance) bind(name string, v script.Value) {
	if _, ok := i.values[name]; !ok {
		i.order = append(i.order, name)
	}
	i.values[name] = v
}

func (i *fakeInstance) has(name string) bool {
	_, ok := i.values[name]
	return ok
}

// fn builds a callable value with the given attributes.
func fn(body func(*fakeInstance) error, attrs ...script.Attribute) script.Value {
	return script.Value{Type: "fn", Callable: true, Payload: body, Attrs: attrs}
}

func testAttr(v script.AttrValue) script.Attribute {
	return script.Attribute{Name: TestAttr, Value: v}
}

func pass(*fakeInstance) error { return nil }

func raise(msg string) func(*fakeInstance) error {
	return func(*fakeInstance) error { return scriptErr(msg) }
}

func scriptErr(msg string) *script.Error {
	return script.NewError(script.KindRuntime, msg, "Traceback:\n  "+msg, nil)
}

var errHost = errors.New("host failure")

func importsMeta(names ...any) *script.Metadata {
	m := script.NewMetadata()
	m.Set(ImportsDirective, names)
	return m
}

func metaWith(name string, value any) *script.Metadata {
	m := script.NewMetadata()
	m.Set(name, value)
	return m
}

// writeFile writes a test file whose source selects a fake program.
func writeFile(t *testing.T, dir, name, key string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(key), 0644))
	return path
}
