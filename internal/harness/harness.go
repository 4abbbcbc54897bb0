package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/roach88/attest/internal/script"
)

// errStdinInTest is what input() reports while a test file runs.
var errStdinInTest = errors.New("cannot use standard input during test")

// Attribution labels for the step currently executing.
const labelRoot = "root"

func labelParse(file string) string     { return "parse " + file }
func labelImport(file string) string    { return "import " + file }
func labelExecuting(file string) string { return "executing " + file }
func labelFunction(name string) string  { return fmt.Sprintf("function '%s'", name) }

// Context runs one test file in its own interpreter instance.
//
// A Context is single-use and owned by one goroutine. It holds the
// "currently executing" label used to attribute script errors, the
// expected-error state of the test function being run, and the errors
// recorded so far.
type Context struct {
	path     string
	engine   script.Engine
	instance script.Instance
	logger   *slog.Logger

	current       string
	acceptError   bool
	acceptedError *script.Error
	result        *Result
}

// ContextOption configures a Context.
type ContextOption func(*contextConfig)

type contextConfig struct {
	logger *slog.Logger
	out    io.Writer
}

// WithLogger sets the logger for step and script output.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *contextConfig) {
		c.logger = logger
	}
}

// WithOutput sends script output to w instead of the debug log.
func WithOutput(w io.Writer) ContextOption {
	return func(c *contextConfig) {
		c.out = w
	}
}

// NewContext creates a Context for the file at path.
// The file is not read until Run.
func NewContext(eng script.Engine, path string, opts ...ContextOption) *Context {
	cfg := contextConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	out := cfg.out
	if out == nil {
		out = &logWriter{logger: cfg.logger, path: path}
	}

	return &Context{
		path:   path,
		engine: eng,
		instance: eng.NewInstance(script.IO{
			Out: out,
			Input: func(string) (string, error) {
				return "", errStdinInTest
			},
		}),
		logger:  cfg.logger,
		current: labelRoot,
		result:  NewResult(),
	}
}

// Run executes the file and returns its result.
//
// A non-nil error is harness-fatal: the file could not be read, its imports
// directive is malformed, or something other than the script failed. Script
// errors never surface here; they are recorded in the Result.
func (c *Context) Run(ctx context.Context) (*Result, error) {
	src, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test file: %w", err)
	}

	var prog script.Program
	err = c.guard(labelParse(c.path), func() error {
		var perr error
		prog, perr = c.engine.Parse(c.path, src)
		return perr
	})
	if err != nil {
		return nil, err
	}
	if prog == nil {
		// Unparseable: the error is recorded and nothing else can run.
		return c.result, nil
	}

	imports, err := c.loadImports(prog)
	if err != nil {
		return nil, err
	}
	for _, imp := range imports {
		if err := c.guard(labelImport(imp.Name), func() error {
			return c.instance.Exec(ctx, imp.Program)
		}); err != nil {
			return nil, err
		}
	}

	if err := c.guard(labelExecuting(c.path), func() error {
		return c.instance.Exec(ctx, prog)
	}); err != nil {
		return nil, err
	}

	if err := c.runTestFunctions(ctx); err != nil {
		return nil, err
	}

	c.logger.Debug("test file finished",
		"path", c.path,
		"pass", c.result.Pass,
		"errors", len(c.result.Errors),
	)
	return c.result, nil
}

// guard runs one execution step under label.
//
// Script errors are caught: while an expected-error test runs the first one
// is captured as the accepted error, otherwise it is recorded. Every other
// error, and any panic, is returned as harness-fatal.
func (c *Context) guard(label string, step func() error) (err error) {
	c.current = label
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Label: label, Value: r, Stack: debug.Stack()}
		}
		c.current = labelRoot
	}()

	stepErr := step()
	if stepErr == nil {
		return nil
	}
	se, ok := script.AsError(stepErr)
	if !ok {
		return fmt.Errorf("%s: %w", label, stepErr)
	}
	c.catch(se)
	return nil
}

// catch records a script error against the current label.
// Timeouts are never accepted as the expected error of an "err" test.
func (c *Context) catch(se *script.Error) {
	if c.acceptError && se.Kind != script.KindTimeout {
		if c.acceptedError == nil {
			c.acceptedError = se
		}
		return
	}
	c.logger.Debug("script error", "path", c.path, "label", c.current, "error", se.Message)
	c.result.AddError(TestError{
		Message: c.current,
		Label:   c.current,
		Cause:   se,
	})
}

// addError records a failure that did not come from the interpreter.
func (c *Context) addError(message, label string) {
	c.result.AddError(TestError{Message: message, Label: label})
}

// logWriter forwards script output to the debug log, one record per write.
type logWriter struct {
	logger *slog.Logger
	path   string
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.Debug("script output", "path", w.path, "text", string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return p[:n-1]
	}
	return p
}

// importDir returns the directory imports of the file at path resolve against.
func importDir(path string) string {
	return filepath.Dir(path)
}
