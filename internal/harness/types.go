package harness

import (
	"time"

	"github.com/roach88/attest/internal/script"
)

// TestError is one recorded failure of a test file.
type TestError struct {
	// Message describes the failure. For script errors it is the label of the
	// step that raised the error.
	Message string `json:"message"`

	// Label is the attribution label current when the error was recorded.
	// Empty for discovery errors, which belong to no execution step.
	Label string `json:"label,omitempty"`

	// Cause is the underlying script error, if any.
	Cause *script.Error `json:"-"`
}

// Result is the outcome of one test file.
type Result struct {
	// Pass is true iff Errors is empty.
	Pass bool `json:"pass"`

	// Errors holds every recorded failure in the order it occurred.
	Errors []TestError `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []TestError{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err TestError) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FileResult is a Result together with where and how the file ran.
type FileResult struct {
	Result

	// Path is the file path as reached from the walk root, root included.
	Path string `json:"path"`

	// RelPath is Path relative to the walk root.
	RelPath string `json:"rel_path"`

	// Duration is the wall time spent running the file.
	Duration time.Duration `json:"duration"`

	// Fatal is the harness-fatal error that stopped the file.
	// Only set under FatalIsolate; Pass is false whenever Fatal is set.
	Fatal error `json:"-"`
}
