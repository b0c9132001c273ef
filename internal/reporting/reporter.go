// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatJUnit = "junit"
	FormatText  = "text"
)

// Reporter writes a run report to an output.
type Reporter interface {
	// Write renders the report.
	Write(report *results.Report) error
	// Close finalizes the output and closes any underlying file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath, or stdout when the
// path is empty or "stdout".
func New(format, outputPath string) (Reporter, error) {
	switch format {
	case FormatJSON, FormatJUnit, FormatText:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser) (Reporter, error) {
	switch format {
	case FormatJSON:
		return &jsonReporter{w: writer}, nil
	case FormatJUnit:
		return &junitReporter{w: writer}, nil
	case FormatText:
		return &textReporter{w: writer}, nil
	}
	return nil, fmt.Errorf("unsupported output format: %s", format)
}
