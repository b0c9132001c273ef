// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

// Step is one labeled unit of the fixed per-scenario sequence.
type Step struct {
	// ID is a template; "{action}" and "{index}" are substituted per scenario.
	ID   string
	Name string
	// When decides inclusion. A nil When always includes the step.
	When func(ParameterSet) bool
	Run  func(ctx context.Context, set ParameterSet) error
}

// Includes reports whether the step takes part in the scenario for set.
func (s Step) Includes(set ParameterSet) bool {
	return s.When == nil || s.When(set)
}

// StepID expands an ID template for the scenario at index.
func StepID(template string, index int, set ParameterSet) string {
	return strings.NewReplacer(
		"{action}", set.Action(),
		"{index}", strconv.Itoa(index),
	).Replace(template)
}

// PlannedStep is a step of the expanded plan of one scenario.
type PlannedStep struct {
	ID       string
	Name     string
	Included bool
}

// Runner executes the matrix: sets strictly in order, steps strictly in order,
// fail-fast within a scenario.
type Runner struct {
	steps       []Step
	stepTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time

	// Recover runs after a scenario failed without a fatal error, to bring
	// the session back to the state the next scenario starts from.
	Recover func(ctx context.Context) error
}

func NewRunner(steps []Step, stepTimeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		steps:       steps,
		stepTimeout: stepTimeout,
		logger:      logger.Named("scenario"),
		now:         time.Now,
	}
}

// Plan lists every step for the scenario at index, marking the excluded ones.
func (r *Runner) Plan(index int, set ParameterSet) []PlannedStep {
	plan := make([]PlannedStep, 0, len(r.steps))
	for _, s := range r.steps {
		plan = append(plan, PlannedStep{
			ID:       StepID(s.ID, index, set),
			Name:     s.Name,
			Included: s.Includes(set),
		})
	}
	return plan
}

// RunMatrix runs every set in order. A fatal error stops the matrix; the
// remaining scenarios are recorded as skipped and the error is returned.
func (r *Runner) RunMatrix(ctx context.Context, m Matrix) ([]results.ScenarioResult, error) {
	out := make([]results.ScenarioResult, 0, len(m))
	var fatal error
	for i, set := range m {
		if fatal != nil {
			out = append(out, r.skipped(i, set))
			continue
		}

		res, err := r.RunScenario(ctx, i, set)
		out = append(out, res)
		if err != nil {
			fatal = err
			r.logger.Error("Scenario matrix aborted.", zap.Int("scenario", i), zap.Error(err))
			continue
		}
		if res.Status == results.StatusFailed && r.Recover != nil {
			if rerr := r.Recover(ctx); rerr != nil {
				fatal = fmt.Errorf("recovering after scenario %d (%s): %w", i, set.Action(), rerr)
				r.logger.Error("Could not recover after failed scenario.", zap.Int("scenario", i), zap.Error(rerr))
			}
		}
	}
	return out, fatal
}

// RunScenario runs the included steps for set. It returns an error only when
// the failure is fatal to the whole matrix.
func (r *Runner) RunScenario(ctx context.Context, index int, set ParameterSet) (results.ScenarioResult, error) {
	res := newScenarioResult(index, set)
	res.Status = results.StatusPassed

	var (
		failed bool
		fatal  error
	)
	for _, s := range r.steps {
		if !s.Includes(set) {
			continue
		}
		id := StepID(s.ID, index, set)
		if failed {
			res.Steps = append(res.Steps, results.StepResult{ID: id, Name: s.Name, Status: results.StatusSkipped})
			continue
		}

		log := observability.ForStep(r.logger, set.Action(), id)
		log.Info("Running step.", zap.String("name", s.Name))

		started := r.now()
		err := r.runStep(ctx, id, s, set)
		step := results.StepResult{
			ID:       id,
			Name:     s.Name,
			Status:   results.StatusPassed,
			Started:  started,
			Duration: r.now().Sub(started),
		}
		if err != nil {
			step.Status = results.StatusFailed
			step.Message = err.Error()
			step.ErrorKind = Classify(err)
			res.Status = results.StatusFailed
			failed = true
			if IsFatal(err) {
				fatal = err
			}
			log.Warn("Step failed.", zap.String("error_kind", step.ErrorKind), zap.Error(err))
		} else {
			log.Info("Step passed.", zap.Duration("duration", step.Duration))
		}
		res.Steps = append(res.Steps, step)
	}
	return res, fatal
}

func (r *Runner) runStep(ctx context.Context, id string, s Step, set ParameterSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	err := s.Run(stepCtx, set)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded), browser.IsTimeout(err):
		return &StepTimeoutError{StepID: id, Timeout: r.stepTimeout, Err: err}
	}
	return err
}

// SkipMatrix records every set of m as skipped, for runs that never reach the matrix.
func (r *Runner) SkipMatrix(m Matrix) []results.ScenarioResult {
	out := make([]results.ScenarioResult, 0, len(m))
	for i, set := range m {
		out = append(out, r.skipped(i, set))
	}
	return out
}

func (r *Runner) skipped(index int, set ParameterSet) results.ScenarioResult {
	res := newScenarioResult(index, set)
	res.Status = results.StatusSkipped
	for _, s := range r.steps {
		if s.Includes(set) {
			res.Steps = append(res.Steps, results.StepResult{
				ID:     StepID(s.ID, index, set),
				Name:   s.Name,
				Status: results.StatusSkipped,
			})
		}
	}
	return res
}

func newScenarioResult(index int, set ParameterSet) results.ScenarioResult {
	return results.ScenarioResult{
		Index:        index,
		Action:       set.Action(),
		Enabled:      set.Enabled(),
		ExpectedText: set.ExpectedText(),
		Steps:        []results.StepResult{},
	}
}
