package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/attest/internal/report"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

type rowScanner interface {
	Scan(dest ...any) error
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
//
// Returns an empty slice (not nil) if no runs are recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, root, passed, failed, total
		FROM runs
		ORDER BY seq DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, root, passed, failed, total
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ReadFiles returns the file results of a run in report order.
func (s *Store) ReadFiles(ctx context.Context, runID string) ([]report.FileReport, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, pass, fatal, errors, digest, duration_ms
		FROM file_results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query file results: %w", err)
	}
	defer rows.Close()

	files := []report.FileReport{}
	for rows.Next() {
		var (
			f        report.FileReport
			errsJSON string
		)
		if err := rows.Scan(&f.Path, &f.Pass, &f.Fatal, &errsJSON, &f.Digest, &f.DurationMS); err != nil {
			return nil, fmt.Errorf("scan file result: %w", err)
		}
		if f.Errors, err = unmarshalErrors(errsJSON); err != nil {
			return nil, fmt.Errorf("file result %s: %w", f.Path, err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file results: %w", err)
	}
	return files, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run     Run
		started string
	)
	err := row.Scan(&run.ID, &started, &run.Root, &run.Summary.Passed, &run.Summary.Failed, &run.Summary.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("run %s: parse started_at: %w", run.ID, err)
	}
	return run, nil
}
