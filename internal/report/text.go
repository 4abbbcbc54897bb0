package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	markPass   = "✔"
	markFail   = "✘"
	bullet     = "•"
	causeShift = "    "

	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiReset = "\x1b[0m"
)

// TextReporter writes the human-readable report.
type TextReporter struct {
	w     io.Writer
	color bool
}

// TextOption configures a TextReporter.
type TextOption func(*TextReporter)

// WithColor enables or disables ANSI colour.
func WithColor(on bool) TextOption {
	return func(r *TextReporter) {
		r.color = on
	}
}

// NewTextReporter creates a reporter writing to w. Colour is off unless
// enabled with WithColor.
func NewTextReporter(w io.Writer, opts ...TextOption) *TextReporter {
	r := &TextReporter{w: w}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ColorEnabled reports whether output to f should be coloured: f must be a
// terminal and the user must not have opted out.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Report writes every file in order followed by the summary line.
func (r *TextReporter) Report(run *RunReport) error {
	for _, f := range run.Files {
		if err := r.File(f); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(r.w, "\n%d passed, %d failed, %d total\n",
		run.Summary.Passed, run.Summary.Failed, run.Summary.Total)
	return err
}

// File writes the status line of one file and, if it failed, its errors.
func (r *TextReporter) File(f FileReport) error {
	var b strings.Builder
	if f.Pass {
		b.WriteString(r.paint(ansiGreen, markPass))
	} else {
		b.WriteString(r.paint(ansiRed, markFail))
	}
	b.WriteString(" ")
	b.WriteString(f.Path)
	b.WriteString("\n")

	if f.Fatal != "" {
		fmt.Fprintf(&b, "  %s harness error: %s\n", bullet, f.Fatal)
	}
	for _, e := range f.Errors {
		fmt.Fprintf(&b, "  %s %s\n", bullet, e.Message)
		if e.Cause != "" {
			b.WriteString(r.paint(ansiRed, indent(e.Cause, causeShift)))
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// ScriptError writes a script error on its own, as the interactive runner
// shows it.
func (r *TextReporter) ScriptError(description string) error {
	_, err := io.WriteString(r.w, r.paint(ansiRed, strings.TrimRight(description, "\n")+"\n"))
	return err
}

func (r *TextReporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	// Keep a trailing newline outside the escape so terminals reset first.
	if body, ok := strings.CutSuffix(s, "\n"); ok {
		return code + body + ansiReset + "\n"
	}
	return code + s + ansiReset
}

// indent prefixes every line of s and ends the result with a newline.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
