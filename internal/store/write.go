package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/attest/internal/report"
)

// Run is one recorded invocation of the test runner.
type Run struct {
	ID        string
	StartedAt time.Time
	Root      string
	Summary   report.Summary
}

// RecordRun stores a run and all of its file results in one transaction.
// Files keep the order they have in the report.
func (s *Store) RecordRun(ctx context.Context, root string, rep *report.RunReport) (Run, error) {
	run := Run{
		ID:        s.ids.Generate(),
		StartedAt: s.now().UTC(),
		Root:      root,
		Summary:   rep.Summary,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, root, passed, failed, total)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.Format(time.RFC3339Nano),
		run.Root,
		run.Summary.Passed,
		run.Summary.Failed,
		run.Summary.Total,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	for i, f := range rep.Files {
		errsJSON, err := marshalErrors(f.Errors)
		if err != nil {
			return Run{}, fmt.Errorf("record run: %s: %w", f.Path, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO file_results (run_id, seq, path, pass, fatal, errors, digest, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			f.Path,
			f.Pass,
			f.Fatal,
			errsJSON,
			f.Digest,
			f.DurationMS,
		)
		if err != nil {
			return Run{}, fmt.Errorf("record run: %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}
