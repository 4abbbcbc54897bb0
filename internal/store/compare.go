package store

import (
	"context"

	"github.com/roach88/attest/internal/report"
)

// Change classifies one file across two runs.
type Change string

const (
	ChangeSame    Change = "same"
	ChangeChanged Change = "changed"
	ChangeAdded   Change = "added"
	ChangeRemoved Change = "removed"
)

// FileDiff is the comparison of one file path across two runs.
type FileDiff struct {
	Path   string `json:"path"`
	Change Change `json:"change"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// Comparison is the file-by-file difference between two runs.
type Comparison struct {
	Before string     `json:"before"`
	After  string     `json:"after"`
	Files  []FileDiff `json:"files"`
}

// Identical reports whether every file has the same digest in both runs.
func (c *Comparison) Identical() bool {
	for _, f := range c.Files {
		if f.Change != ChangeSame {
			return false
		}
	}
	return true
}

// CompareRuns loads two runs and compares them.
func (s *Store) CompareRuns(ctx context.Context, before, after string) (*Comparison, error) {
	a, err := s.ReadFiles(ctx, before)
	if err != nil {
		return nil, err
	}
	b, err := s.ReadFiles(ctx, after)
	if err != nil {
		return nil, err
	}
	cmp := Compare(a, b)
	cmp.Before, cmp.After = before, after
	return cmp, nil
}

// Compare matches files by path. Files of the first run come first in their
// order, followed by files only present in the second.
func Compare(before, after []report.FileReport) *Comparison {
	afterByPath := make(map[string]report.FileReport, len(after))
	for _, f := range after {
		afterByPath[f.Path] = f
	}

	cmp := &Comparison{Files: []FileDiff{}}
	seen := make(map[string]bool, len(before))
	for _, f := range before {
		seen[f.Path] = true
		next, ok := afterByPath[f.Path]
		switch {
		case !ok:
			cmp.Files = append(cmp.Files, FileDiff{Path: f.Path, Change: ChangeRemoved, Before: f.Digest})
		case next.Digest == f.Digest:
			cmp.Files = append(cmp.Files, FileDiff{Path: f.Path, Change: ChangeSame, Before: f.Digest, After: next.Digest})
		default:
			cmp.Files = append(cmp.Files, FileDiff{Path: f.Path, Change: ChangeChanged, Before: f.Digest, After: next.Digest})
		}
	}
	for _, f := range after {
		if !seen[f.Path] {
			cmp.Files = append(cmp.Files, FileDiff{Path: f.Path, Change: ChangeAdded, After: f.Digest})
		}
	}
	return cmp
}
