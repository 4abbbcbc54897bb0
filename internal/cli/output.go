package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Everything passed
	ExitFailure      = 1 // A test file failed, a script raised, or compared runs differ
	ExitCommandError = 2 // Bad flags or config, missing paths, harness-fatal errors
)

// Error codes for JSON error responses.
const (
	ErrCodeGeneric     = "E001" // Anything without a more specific code
	ErrCodeConfig      = "E002" // Invalid config file or flag value
	ErrCodeNotFound    = "E003" // Test directory or database missing
	ErrCodeHarness     = "E004" // Harness-fatal error while walking tests
	ErrCodeStore       = "E005" // Results database could not be opened or written
	ErrCodeRunNotFound = "E006" // Run ID not in the results database
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // Shown to the user unless Reported
	Err     error  // Underlying error (optional)

	// Reported means the command already showed the failure to the user,
	// so the caller should exit with Code without printing anything.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// newReportedExit returns an exit error for a failure the command has
// already written to its output.
func newReportedExit(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message, Reported: true}
}

// IsReported reports whether err is an ExitError whose failure was already
// shown to the user.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// GetExitCode extracts the exit code from an error.
// Errors that are not an ExitError map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics and logs; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command writes in --format json.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // command payload
	Error  *CLIError `json:"error,omitempty"`  // set when the command itself failed
	RunID  string    `json:"run_id,omitempty"` // recorded run, when --record is set
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // one of the ErrCode constants
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

func (f *OutputFormatter) isJSON() bool {
	return f.Format == "json"
}

// encode writes resp as one line of JSON. Paths and script messages often
// contain < and >, so HTML escaping is off.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Success writes data as an "ok" response, or prints it in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Report writes a JSON payload whose status follows ok. A run with failing
// tests still carries its full data. Text output is left to the caller.
func (f *OutputFormatter) Report(ok bool, data any, runID string) error {
	status := "ok"
	if !ok {
		status = "error"
	}
	return f.encode(CLIResponse{Status: status, Data: data, RunID: runID})
}

// Error writes a command failure in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose mode is on. It always
// goes to the error writer so JSON on stdout stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
