package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

const junitSuitesName = "crosscheck"

// junitReporter renders phases as one test suite and each scenario as another,
// one test case per recorded step.
type junitReporter struct {
	w io.WriteCloser
}

type junitTally struct {
	tests, failures, skipped int
	elapsed                  time.Duration
}

func (t *junitTally) add(status results.Status, d time.Duration) {
	t.tests++
	t.elapsed += d
	switch status {
	case results.StatusFailed:
		t.failures++
	case results.StatusSkipped:
		t.skipped++
	}
}

func (t *junitTally) apply(e *etree.Element) {
	e.CreateAttr("tests", strconv.Itoa(t.tests))
	e.CreateAttr("failures", strconv.Itoa(t.failures))
	e.CreateAttr("skipped", strconv.Itoa(t.skipped))
	e.CreateAttr("time", seconds(t.elapsed))
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func (r *junitReporter) Write(report *results.Report) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", junitSuitesName)

	var total junitTally
	suites := make([]*etree.Element, 0, len(report.Scenarios)+1)

	phases := etree.NewElement("testsuite")
	phases.CreateAttr("name", "phases")
	var phaseTally junitTally
	props := etree.NewElement("properties")
	for _, kv := range [][2]string{{"run_id", report.RunID}, {"driver", report.Driver}, {"fixture", report.Fixture}} {
		if kv[1] == "" {
			continue
		}
		p := props.CreateElement("property")
		p.CreateAttr("name", kv[0])
		p.CreateAttr("value", kv[1])
	}
	cases := make([]*etree.Element, 0, len(report.Phases))
	for _, p := range report.Phases {
		phaseTally.add(p.Status, p.Duration)
		cases = append(cases, testCase(p.Name, "phases", p.Status, p.Duration, p.ErrorKind, p.Message))
	}
	phaseTally.apply(phases)
	phases.AddChild(props)
	for _, c := range cases {
		phases.AddChild(c)
	}
	if len(report.TeardownErrors) > 0 {
		phases.CreateElement("system-err").SetText(strings.Join(report.TeardownErrors, "\n"))
	}
	suites = append(suites, phases)
	total.tests += phaseTally.tests
	total.failures += phaseTally.failures
	total.skipped += phaseTally.skipped

	for _, s := range report.Scenarios {
		suite := etree.NewElement("testsuite")
		suite.CreateAttr("name", s.Action)
		suite.CreateAttr("id", strconv.Itoa(s.Index))
		var tally junitTally
		cases := make([]*etree.Element, 0, len(s.Steps))
		for _, st := range s.Steps {
			tally.add(st.Status, st.Duration)
			cases = append(cases, testCase(st.ID, s.Action, st.Status, st.Duration, st.ErrorKind, st.Message))
		}
		tally.apply(suite)
		for _, c := range cases {
			suite.AddChild(c)
		}
		suites = append(suites, suite)
		total.tests += tally.tests
		total.failures += tally.failures
		total.skipped += tally.skipped
	}

	total.elapsed = report.Finished.Sub(report.Started)
	total.apply(root)
	for _, s := range suites {
		root.AddChild(s)
	}

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return fmt.Errorf("failed to render junit report: %w", err)
	}
	if _, err := io.WriteString(r.w, strings.TrimSpace(out)+"\n"); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func testCase(name, class string, status results.Status, d time.Duration, kind, message string) *etree.Element {
	tc := etree.NewElement("testcase")
	tc.CreateAttr("name", name)
	tc.CreateAttr("classname", class)
	tc.CreateAttr("time", seconds(d))
	switch status {
	case results.StatusFailed:
		f := tc.CreateElement("failure")
		f.CreateAttr("message", firstLine(message))
		f.CreateAttr("type", kind)
		f.SetText(message)
	case results.StatusSkipped:
		tc.CreateElement("skipped")
	}
	return tc
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (r *junitReporter) Close() error {
	return r.w.Close()
}
