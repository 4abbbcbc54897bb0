package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// RunSummary is one recorded run in history output.
type RunSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Root      string    `json:"root"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
	Total     int       `json:"total"`
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Runs []RunSummary `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded test runs",
		Long: `List test runs recorded with attest test --record, newest first.

Examples:
  attest history --db runs.db
  attest history --db runs.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 means all)")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
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

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return commandError(formatter, ErrCodeStore, err.Error())
	}

	result := HistoryResult{Runs: make([]RunSummary, len(runs))}
	for i, r := range runs {
		result.Runs[i] = RunSummary{
			ID:        r.ID,
			StartedAt: r.StartedAt,
			Root:      r.Root,
			Passed:    r.Summary.Passed,
			Failed:    r.Summary.Failed,
			Total:     r.Summary.Total,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range result.Runs {
		mark := "✔"
		if r.Failed > 0 {
			mark = "✘"
		}
		fmt.Fprintf(w, "%s %s  %s  %d passed, %d failed, %d total  %s\n",
			mark, r.ID, r.StartedAt.Format(time.RFC3339), r.Passed, r.Failed, r.Total, r.Root)
	}
	return nil
}

// openExisting opens a results database that must already exist, so a
// mistyped path is reported instead of creating an empty database.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %s", path)
	}
	return store.Open(path)
}
