// internal/reporting/reporter_test.go
package reporting_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crosscheck-cli/internal/reporting"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return t0.Add(offset) }

const textMismatch = "fo.product.deliveryInformation.text: expected 8-9 days, got 2-3 weeks"

// sampleReport has one failed and one passed scenario.
func sampleReport() *results.Report {
	return &results.Report{
		RunID:    "3f2a5c1e-8d4b-4e6f-9a7c-1b2d3e4f5a6b",
		Started:  t0,
		Finished: at(12500 * time.Millisecond),
		Driver:   "playwright",
		Fixture:  "Walnut Lamp 3f2a5c",
		Phases: []results.PhaseResult{
			{Name: results.PhaseLogin, Status: results.StatusPassed, Started: t0, Duration: time.Second},
			{Name: results.PhaseFixtureCreate, Status: results.StatusPassed, Started: at(time.Second), Duration: 2 * time.Second},
			{Name: results.PhaseOpenSettings, Status: results.StatusPassed, Started: at(3 * time.Second), Duration: 500 * time.Millisecond},
			{Name: results.PhaseFixtureDelete, Status: results.StatusPassed, Started: at(11 * time.Second), Duration: 1500 * time.Millisecond},
		},
		Scenarios: []results.ScenarioResult{
			{
				Index: 0, Action: "enable", Enabled: true, ExpectedText: "8-9 days", Status: results.StatusFailed,
				Steps: []results.StepResult{
					{ID: "enableStockManagement", Name: "enable stock management", Status: results.StatusPassed, Started: at(3500 * time.Millisecond), Duration: 250 * time.Millisecond},
					{ID: "deliveryTimeBlockText0", Name: "check delivery time text", Status: results.StatusFailed, Message: textMismatch, ErrorKind: results.KindAssertion, Started: at(4500 * time.Millisecond), Duration: 100 * time.Millisecond},
					{ID: "goBackToBo0", Name: "go back to the back office", Status: results.StatusSkipped},
				},
			},
			{
				Index: 1, Action: "disable", Status: results.StatusPassed,
				Steps: []results.StepResult{
					{ID: "disableStockManagement", Name: "disable stock management", Status: results.StatusPassed, Started: at(5 * time.Second), Duration: 250 * time.Millisecond},
					{ID: "deliveryTimeBlockVisible1", Name: "check delivery time block visibility", Status: results.StatusPassed, Started: at(5250 * time.Millisecond), Duration: time.Second},
				},
			},
		},
	}
}

func render(t *testing.T, format string, report *results.Report) []byte {
	t.Helper()
	out := &bufferCloser{}
	r, err := reporting.NewWithWriter(format, out)
	require.NoError(t, err)
	require.NoError(t, r.Write(report))
	require.NoError(t, r.Close())
	assert.True(t, out.closed, "reporter must close its writer")
	return out.Bytes()
}

func TestNew_Stdout(t *testing.T) {
	for _, path := range []string{"stdout", ""} {
		r, err := reporting.New(reporting.FormatText, path)
		require.NoError(t, err)
		assert.NotNil(t, r)
		// Close is a no-op for the stdout wrapper.
		assert.NoError(t, r.Close())
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")

	r, err := reporting.New(reporting.FormatJUnit, path)
	require.NoError(t, err)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuites name="crosscheck"`)
}

func TestNew_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.sarif")

	r, err := reporting.New("sarif", path)
	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: sarif")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for an unknown format")
}

func TestNew_InvalidPath(t *testing.T) {
	r, err := reporting.New(reporting.FormatJSON, filepath.Join(t.TempDir(), "missing", "report.json"))
	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	for _, tc := range []struct {
		name   string
		format string
	}{
		{"report_text", reporting.FormatText},
		{"report_junit", reporting.FormatJUnit},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g.Assert(t, tc.name, render(t, tc.format, sampleReport()))
		})
	}
}

func TestJSON(t *testing.T) {
	want, err := os.ReadFile(filepath.Join("testdata", "report.json"))
	require.NoError(t, err)

	got := render(t, reporting.FormatJSON, sampleReport())
	assert.JSONEq(t, string(want), string(got))
}

func TestDecodeJSON_RoundTrip(t *testing.T) {
	report := sampleReport()
	decoded, err := reporting.DecodeJSON(bytes.NewReader(render(t, reporting.FormatJSON, report)))
	require.NoError(t, err)

	assert.Equal(t, report.RunID, decoded.RunID)
	assert.True(t, report.Finished.Equal(decoded.Finished))
	assert.Equal(t, report.StepCounts(), decoded.StepCounts())
	assert.Equal(t, report.FirstFailure(), decoded.FirstFailure())
	assert.False(t, decoded.Passed())
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := reporting.DecodeJSON(bytes.NewReader([]byte(`{"passed": true}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing report object")

	_, err = reporting.DecodeJSON(bytes.NewReader([]byte(`not json`)))
	require.Error(t, err)
}

func TestText_PassingRunWithTeardownErrors(t *testing.T) {
	report := sampleReport()
	report.Scenarios = report.Scenarios[1:]
	report.TeardownErrors = []string{"session: destroy: browser already closed"}

	out := string(render(t, reporting.FormatText, report))
	assert.Contains(t, out, "FAILED\n")
	assert.Contains(t, out, "Teardown errors\n  - session: destroy: browser already closed\n")
	assert.Contains(t, out, "First failure: teardown: session: destroy: browser already closed\n")
}

func TestText_MultilineMessageIndented(t *testing.T) {
	report := sampleReport()
	report.Scenarios[0].Steps[1].Message = "mismatch:\n-a\n+b"

	out := string(render(t, reporting.FormatText, report))
	assert.Contains(t, out, "assertion: mismatch:\n      -a\n      +b\n")
}

func TestJUnit_TeardownErrorsAsSystemErr(t *testing.T) {
	report := sampleReport()
	report.TeardownErrors = []string{"first", "second"}

	out := string(render(t, reporting.FormatJUnit, report))
	assert.Contains(t, out, "<system-err>first\nsecond</system-err>")
}
