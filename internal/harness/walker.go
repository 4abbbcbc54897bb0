package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/attest/internal/script"
)

// FatalPolicy decides what a harness-fatal error in one file does to the run.
type FatalPolicy string

const (
	// FatalAbort stops the whole run and returns the first fatal error.
	FatalAbort FatalPolicy = "abort"

	// FatalIsolate records the file as failed and keeps going.
	FatalIsolate FatalPolicy = "isolate"
)

// ValidFatalPolicies lists the accepted FatalPolicy values.
var ValidFatalPolicies = []FatalPolicy{FatalAbort, FatalIsolate}

// ParseFatalPolicy validates a policy name.
func ParseFatalPolicy(s string) (FatalPolicy, error) {
	for _, p := range ValidFatalPolicies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid fatal policy %q: must be one of %v", s, ValidFatalPolicies)
}

// Options configures a Walker.
type Options struct {
	// OnFatal is the fatal-error policy. Empty means FatalAbort.
	OnFatal FatalPolicy

	// Timeout bounds the execution of each file. Zero means no limit.
	Timeout time.Duration

	// MaxParallel bounds how many files execute at once. Zero means no bound.
	// Directory traversal never counts against it.
	MaxParallel int

	// Include restricts test files to names matching one of these globs.
	// Empty means every regular file is a test file.
	Include []string

	// Exclude skips files and directories whose names match one of these globs.
	Exclude []string

	// Logger receives progress and script output. Nil discards.
	Logger *slog.Logger
}

// Walker runs every test file under a directory tree.
//
// Sibling entries run concurrently, one goroutine each, and every directory
// waits for its children before returning. Results come back in depth-first
// entry order regardless of completion order.
type Walker struct {
	engine script.Engine
	opts   Options
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewWalker creates a Walker that runs files with eng.
func NewWalker(eng script.Engine, opts Options) *Walker {
	if opts.OnFatal == "" {
		opts.OnFatal = FatalAbort
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := &Walker{engine: eng, opts: opts, logger: logger}
	if opts.MaxParallel > 0 {
		w.sem = semaphore.NewWeighted(int64(opts.MaxParallel))
	}
	return w
}

// Walk runs every test file under root.
//
// Under FatalAbort the first harness-fatal error cancels files that have not
// started yet and is returned as a *FatalError; no results are returned.
// Under FatalIsolate the error is kept on the file's result instead.
func (w *Walker) Walk(ctx context.Context, root string) ([]FileResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat test root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test root is not a directory: %s", root)
	}

	results, err := w.walkDir(ctx, root, root)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Walker) walkDir(ctx context.Context, root, dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	// One slot per entry keeps results in entry order.
	slots := make([][]FileResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)

	for i, entry := range entries {
		i := i // per-iteration copy (go.mod targets go 1.21)
		name := entry.Name()
		path := filepath.Join(dir, name)

		switch {
		case entry.IsDir():
			if matchAny(w.opts.Exclude, name) {
				continue
			}
			g.Go(func() error {
				res, err := w.walkDir(gctx, root, path)
				slots[i] = res
				return err
			})

		case entry.Type().IsRegular():
			if !w.selected(name) {
				continue
			}
			g.Go(func() error {
				res, err := w.runFile(gctx, root, path)
				if err != nil {
					return err
				}
				slots[i] = []FileResult{*res}
				return nil
			})

		default:
			w.logger.Debug("skipping entry", "path", path, "mode", entry.Type().String())
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []FileResult
	for _, slot := range slots {
		results = append(results, slot...)
	}
	return results, nil
}

// runFile runs one test file, applying the fatal policy to its error.
func (w *Walker) runFile(ctx context.Context, root, path string) (*FileResult, error) {
	if w.sem != nil {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer w.sem.Release(1)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	fileCtx := ctx
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeoutCause(ctx, w.opts.Timeout,
			fmt.Errorf("test file exceeded timeout of %s", w.opts.Timeout))
		defer cancel()
	}

	w.logger.Debug("test file started", "path", path)
	start := time.Now()

	tc := NewContext(w.engine, path, WithLogger(w.logger))
	result, runErr := tc.Run(fileCtx)
	elapsed := time.Since(start)

	if runErr != nil {
		fatal := &FatalError{Path: path, Err: runErr}
		if w.opts.OnFatal != FatalIsolate {
			w.logger.Error("harness error, aborting run", "path", path, "error", runErr)
			return nil, fatal
		}
		w.logger.Warn("harness error, file isolated", "path", path, "error", runErr)
		return &FileResult{
			Result:   Result{Pass: false},
			Path:     path,
			RelPath:  rel,
			Duration: elapsed,
			Fatal:    fatal,
		}, nil
	}

	w.logger.Debug("test file completed",
		"path", path,
		"pass", result.Pass,
		"errors", len(result.Errors),
		"duration", elapsed,
	)
	return &FileResult{
		Result:   *result,
		Path:     path,
		RelPath:  rel,
		Duration: elapsed,
	}, nil
}

// selected reports whether a file name is a test file under the options.
func (w *Walker) selected(name string) bool {
	if matchAny(w.opts.Exclude, name) {
		return false
	}
	if len(w.opts.Include) == 0 {
		return true
	}
	return matchAny(w.opts.Include, name)
}

// matchAny reports whether name matches any glob. Malformed patterns were
// rejected when the configuration was loaded and never match here.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// IsFatal reports whether err came from a harness-fatal condition in a file.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
