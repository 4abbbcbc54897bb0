package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/attest/internal/report"
	"github.com/roach88/attest/internal/testutil"
)

// createTestStore creates a store with deterministic IDs and timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs("")),
		WithClock(testutil.NewClock().Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport builds a report from file reports, filling the summary.
func createTestReport(files ...report.FileReport) *report.RunReport {
	rep := &report.RunReport{Files: files}
	for _, f := range files {
		if f.Pass {
			rep.Summary.Passed++
		} else {
			rep.Summary.Failed++
		}
	}
	rep.Summary.Total = len(files)
	return rep
}

func passing(path, digest string) report.FileReport {
	return report.FileReport{Path: path, Pass: true, Digest: digest, DurationMS: 5}
}

func failing(path, digest string, errs ...report.ErrorReport) report.FileReport {
	return report.FileReport{Path: path, Pass: false, Errors: errs, Digest: digest, DurationMS: 7}
}
