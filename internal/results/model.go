// Package results holds the report of an orchestrated run.
package results

import (
	"time"
)

// Status of a step, phase or scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Error kinds recorded on failed steps and phases.
const (
	KindAssertion       = "assertion"
	KindTimeout         = "timeout"
	KindSession         = "session"
	KindPageNotFound    = "page_not_found"
	KindFixtureCreation = "fixture_creation"
	KindFixtureDeletion = "fixture_deletion"
	KindCanceled        = "canceled"
	KindError           = "error"
)

// Phase names for the parts of a run outside the scenario matrix.
const (
	PhaseLogin         = "login"
	PhaseFixtureCreate = "fixture-create"
	PhaseOpenSettings  = "open-settings"
	PhaseFixtureDelete = "fixture-delete"
)

// StepResult records one executed (or skipped) step. Steps excluded by their
// condition are never recorded.
type StepResult struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration_ns"`
}

// ScenarioResult records one parameter set of the matrix.
type ScenarioResult struct {
	Index        int          `json:"index"`
	Action       string       `json:"action"`
	Enabled      bool         `json:"enabled"`
	ExpectedText string       `json:"expected_text,omitempty"`
	Status       Status       `json:"status"`
	Steps        []StepResult `json:"steps"`
}

// FailedStep returns the first failed step, if any.
func (s ScenarioResult) FailedStep() (StepResult, bool) {
	for _, st := range s.Steps {
		if st.Status == StatusFailed {
			return st, true
		}
	}
	return StepResult{}, false
}

// PhaseResult records a non-matrix phase such as login or fixture deletion.
type PhaseResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration_ns"`
}

// Report is the outcome of one run.
type Report struct {
	RunID          string           `json:"run_id"`
	Started        time.Time        `json:"started"`
	Finished       time.Time        `json:"finished"`
	Driver         string           `json:"driver"`
	Fixture        string           `json:"fixture,omitempty"`
	Phases         []PhaseResult    `json:"phases"`
	Scenarios      []ScenarioResult `json:"scenarios"`
	TeardownErrors []string         `json:"teardown_errors,omitempty"`
}

// Passed is true only when every phase and scenario passed and teardown was clean.
func (r *Report) Passed() bool {
	if len(r.TeardownErrors) > 0 || len(r.Scenarios) == 0 {
		return false
	}
	for _, p := range r.Phases {
		if p.Status != StatusPassed {
			return false
		}
	}
	for _, s := range r.Scenarios {
		if s.Status != StatusPassed {
			return false
		}
	}
	return true
}

// Phase returns the named phase result.
func (r *Report) Phase(name string) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseResult{}, false
}

// Counts tallies step statuses over all scenarios.
type Counts struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (c Counts) Total() int { return c.Passed + c.Failed + c.Skipped }

// StepCounts tallies every recorded step.
func (r *Report) StepCounts() Counts {
	var c Counts
	for _, s := range r.Scenarios {
		for _, st := range s.Steps {
			switch st.Status {
			case StatusPassed:
				c.Passed++
			case StatusFailed:
				c.Failed++
			case StatusSkipped:
				c.Skipped++
			}
		}
	}
	return c
}

// FirstFailure returns the message of the first failing phase or step, the primary diagnostic of a run.
func (r *Report) FirstFailure() string {
	for _, p := range r.Phases {
		if p.Status == StatusFailed && (p.Name == PhaseLogin || p.Name == PhaseFixtureCreate || p.Name == PhaseOpenSettings) {
			return p.Name + ": " + p.Message
		}
	}
	for _, s := range r.Scenarios {
		if st, ok := s.FailedStep(); ok {
			return st.ID + ": " + st.Message
		}
	}
	for _, p := range r.Phases {
		if p.Status == StatusFailed {
			return p.Name + ": " + p.Message
		}
	}
	if len(r.TeardownErrors) > 0 {
		return "teardown: " + r.TeardownErrors[0]
	}
	return ""
}
