package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/report"
	"github.com/roach88/attest/internal/script"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	NoColor bool

	// Input overrides how input() reads a line (for testing).
	// If nil, a line editor is used when stdin is a terminal and plain line
	// reads otherwise.
	Input func(prompt string) (string, error)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a single script",
		Long: `Execute one Starlark script outside the test harness.

print() writes to standard output and input() prompts on the terminal.
A script error is printed to standard error.

Exit codes:
  0 - Script ran to completion
  1 - Script error, or no file given
  2 - Command error (unreadable file, etc.)

Examples:
  attest run hello.star
  attest run --no-color tests/smoke.star`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "Filename not provided")
				return newReportedExit(ExitFailure, "filename not provided")
			}
			return runScript(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured error output")

	return cmd
}

func runScript(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read script", err)
	}

	input, closeInput := opts.Input, func() {}
	if input == nil {
		input, closeInput = terminalInput(cmd.InOrStdin(), cmd.OutOrStdout())
	}
	defer closeInput()

	eng := engine.New()
	prog, err := eng.Parse(path, src)
	if err == nil {
		inst := eng.NewInstance(script.IO{Out: cmd.OutOrStdout(), Input: input})
		err = inst.Exec(ctx, prog)
	}
	if err == nil {
		return nil
	}

	se, ok := script.AsError(err)
	if !ok {
		return WrapExitError(ExitCommandError, "failed to run script", err)
	}
	errOut := report.NewTextReporter(cmd.ErrOrStderr(),
		report.WithColor(colorFor(cmd.ErrOrStderr(), opts.NoColor)))
	_ = errOut.ScriptError(se.Describe())
	return newReportedExit(ExitFailure, "script failed")
}

// terminalInput returns a line reader for input() and a func releasing it.
// On a terminal the line editor is only started by the first prompt.
func terminalInput(in io.Reader, out io.Writer) (func(string) (string, error), func()) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var ln *liner.State
		read := func(prompt string) (string, error) {
			if ln == nil {
				ln = liner.NewLiner()
				ln.SetCtrlCAborts(true)
			}
			line, err := ln.Prompt(prompt)
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", fmt.Errorf("input aborted")
			}
			if err == nil {
				ln.AppendHistory(line)
			}
			return line, err
		}
		release := func() {
			if ln != nil {
				ln.Close()
			}
		}
		return read, release
	}

	r := bufio.NewReader(in)
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		line, err := r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}, func() {}
}
