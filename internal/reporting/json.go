package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonDocument is the top-level shape of a JSON report.
type jsonDocument struct {
	Passed bool            `json:"passed"`
	Steps  results.Counts  `json:"steps"`
	Report *results.Report `json:"report"`
}

type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(report *results.Report) error {
	data, err := json.MarshalIndent(jsonDocument{
		Passed: report.Passed(),
		Steps:  report.StepCounts(),
		Report: report,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.w.Close()
}

// DecodeJSON reads back a report written in the JSON format.
func DecodeJSON(in io.Reader) (*results.Report, error) {
	var doc jsonDocument
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if doc.Report == nil {
		return nil, fmt.Errorf("failed to decode report: missing report object")
	}
	return doc.Report, nil
}
