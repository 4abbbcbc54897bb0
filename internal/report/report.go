package report

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/attest/internal/harness"
)

// ErrorReport is one recorded failure.
type ErrorReport struct {
	Message string `json:"message"`
	Label   string `json:"label,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// FileReport is the outcome of one test file.
type FileReport struct {
	Path       string        `json:"path"`
	Pass       bool          `json:"pass"`
	Errors     []ErrorReport `json:"errors,omitempty"`
	Fatal      string        `json:"fatal,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Digest     string        `json:"digest"`
}

// Summary counts files by outcome.
type Summary struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// RunReport is the outcome of one run over a directory tree.
type RunReport struct {
	Files   []FileReport `json:"files"`
	Summary Summary      `json:"summary"`
}

// OK reports whether every file passed.
func (r *RunReport) OK() bool {
	return r.Summary.Failed == 0
}

// Build converts walker results, in order, into a RunReport.
func Build(results []harness.FileResult) (*RunReport, error) {
	run := &RunReport{Files: make([]FileReport, 0, len(results))}
	for _, res := range results {
		fr, err := NewFileReport(res)
		if err != nil {
			return nil, err
		}
		run.Files = append(run.Files, fr)
		if fr.Pass {
			run.Summary.Passed++
		} else {
			run.Summary.Failed++
		}
	}
	run.Summary.Total = len(run.Files)
	return run, nil
}

// NewFileReport converts one result and computes its digest.
func NewFileReport(res harness.FileResult) (FileReport, error) {
	fr := FileReport{
		Path:       filepath.ToSlash(res.RelPath),
		Pass:       res.Pass && res.Fatal == nil,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Fatal != nil {
		fr.Fatal = res.Fatal.Error()
	}
	for _, te := range res.Errors {
		er := ErrorReport{Message: te.Message, Label: te.Label}
		if te.Cause != nil {
			er.Kind = string(te.Cause.Kind)
			er.Cause = te.Cause.Describe()
		}
		fr.Errors = append(fr.Errors, er)
	}

	digest, err := Digest(fr)
	if err != nil {
		return FileReport{}, fmt.Errorf("digest %s: %w", fr.Path, err)
	}
	fr.Digest = digest
	return fr, nil
}

// Digest identifies a file outcome by content. Duration and the digest
// field itself are excluded, so identical runs produce identical digests.
func Digest(fr FileReport) (string, error) {
	errs := make([]any, len(fr.Errors))
	for i, e := range fr.Errors {
		errs[i] = map[string]any{
			"message": e.Message,
			"label":   e.Label,
			"kind":    e.Kind,
			"cause":   e.Cause,
		}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"path":   fr.Path,
		"pass":   fr.Pass,
		"errors": errs,
		"fatal":  fr.Fatal,
	})
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainFileResult, canonical), nil
}
