package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/store"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Database string
}

var changeMarks = map[store.Change]string{
	store.ChangeSame:    "=",
	store.ChangeChanged: "~",
	store.ChangeAdded:   "+",
	store.ChangeRemoved: "-",
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <run-a> <run-b>",
		Short: "Compare the results of two recorded runs",
		Long: `Compare two recorded runs file by file.

Files are matched by path and compared by result digest, which covers the
pass/fail outcome and every recorded error but not timings. Running the same
tree twice should produce identical runs.

Exit codes:
  0 - Runs are identical
  1 - At least one file differs
  2 - Command error (database or run not found, etc.)

Examples:
  attest compare --db runs.db 0190b2c4-... 0190b2c5-...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCompare(ctx context.Context, opts *CompareOptions, before, after string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeNotFound, err.Error())
	}
	defer st.Close()

	cmp, err := st.CompareRuns(ctx, before, after)
	if errors.Is(err, store.ErrRunNotFound) {
		return commandError(formatter, ErrCodeRunNotFound, err.Error())
	}
	if err != nil {
		return commandError(formatter, ErrCodeStore, err.Error())
	}

	if opts.Format == "json" {
		if err := formatter.Report(cmp.Identical(), cmp, ""); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		differ := 0
		for _, f := range cmp.Files {
			if f.Change != store.ChangeSame {
				differ++
			}
			fmt.Fprintf(w, "%s %s\n", changeMarks[f.Change], f.Path)
		}
		if differ == 0 {
			fmt.Fprintln(w, "\nruns are identical")
		} else {
			fmt.Fprintf(w, "\n%d of %d files differ\n", differ, len(cmp.Files))
		}
	}

	if !cmp.Identical() {
		return newReportedExit(ExitFailure, "runs differ")
	}
	return nil
}
