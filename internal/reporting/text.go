package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

type textReporter struct {
	w io.WriteCloser
}

var statusTags = map[results.Status]string{
	results.StatusPassed:  "[PASS]",
	results.StatusFailed:  "[FAIL]",
	results.StatusSkipped: "[SKIP]",
}

func (r *textReporter) Write(report *results.Report) error {
	var b strings.Builder

	verdict := "PASSED"
	if !report.Passed() {
		verdict = "FAILED"
	}
	fmt.Fprintf(&b, "Run %s %s\n", report.RunID, verdict)
	fmt.Fprintf(&b, "Driver:  %s\n", report.Driver)
	if report.Fixture != "" {
		fmt.Fprintf(&b, "Fixture: %s\n", report.Fixture)
	}
	fmt.Fprintf(&b, "Started: %s (%s)\n", report.Started.UTC().Format(time.RFC3339), report.Finished.Sub(report.Started))

	if len(report.Phases) > 0 {
		b.WriteString("\nPhases\n")
		for _, p := range report.Phases {
			writeEntry(&b, p.Status, p.Name, p.Duration, p.ErrorKind, p.Message)
		}
	}

	for _, s := range report.Scenarios {
		expectation := "disabled"
		if s.Enabled {
			expectation = fmt.Sprintf("enabled, expects %q", s.ExpectedText)
		}
		fmt.Fprintf(&b, "\nScenario %d %s (%s) %s\n", s.Index, s.Action, expectation, strings.ToUpper(string(s.Status)))
		for _, st := range s.Steps {
			writeEntry(&b, st.Status, st.ID, st.Duration, st.ErrorKind, st.Message)
		}
	}

	if len(report.TeardownErrors) > 0 {
		b.WriteString("\nTeardown errors\n")
		for _, e := range report.TeardownErrors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	c := report.StepCounts()
	fmt.Fprintf(&b, "\nSteps: %d passed, %d failed, %d skipped\n", c.Passed, c.Failed, c.Skipped)
	if f := report.FirstFailure(); f != "" {
		fmt.Fprintf(&b, "First failure: %s\n", f)
	}

	if _, err := io.WriteString(r.w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeEntry(b *strings.Builder, status results.Status, name string, d time.Duration, kind, message string) {
	tag := statusTags[status]
	if status == results.StatusSkipped {
		fmt.Fprintf(b, "  %s %s\n", tag, name)
		return
	}
	fmt.Fprintf(b, "  %s %s (%s)", tag, name, d)
	if status == results.StatusFailed {
		// Multi-line messages (diffs) stay under their step.
		fmt.Fprintf(b, " %s: %s", kind, strings.ReplaceAll(message, "\n", "\n      "))
	}
	b.WriteByte('\n')
}

func (r *textReporter) Close() error {
	return r.w.Close()
}
