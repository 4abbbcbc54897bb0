package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/attest/internal/report"
)

// marshalErrors converts recorded errors to canonical JSON TEXT for storage.
// Every field is written, including empty ones, so equal error lists always
// produce equal text.
func marshalErrors(errs []report.ErrorReport) (string, error) {
	list := make([]any, len(errs))
	for i, e := range errs {
		list[i] = map[string]any{
			"message": e.Message,
			"label":   e.Label,
			"kind":    e.Kind,
			"cause":   e.Cause,
		}
	}
	data, err := report.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(data), nil
}

// unmarshalErrors parses stored errors. An empty list reads back as nil,
// matching a FileReport built for a passing file.
func unmarshalErrors(text string) ([]report.ErrorReport, error) {
	var errs []report.ErrorReport
	if err := json.Unmarshal([]byte(text), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}
