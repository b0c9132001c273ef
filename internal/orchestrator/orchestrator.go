// File: internal/orchestrator/orchestrator.go
// Description: Drives one run end to end. The browser driver and the matrix
// are injected so the whole flow can be exercised against an in-memory shop.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/config"
	"github.com/xkilldash9x/crosscheck-cli/internal/fixture"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/bo"
	"github.com/xkilldash9x/crosscheck-cli/internal/registry"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
	"github.com/xkilldash9x/crosscheck-cli/internal/scenario"
	"github.com/xkilldash9x/crosscheck-cli/internal/session"
	"github.com/xkilldash9x/crosscheck-cli/internal/verify"
)

// ErrSetupFailed is returned when a phase before the matrix failed, so no
// scenario ran.
var ErrSetupFailed = errors.New("run setup failed")

// Orchestrator runs the scenario matrix against one shop.
type Orchestrator struct {
	cfg    *config.Config
	driver browser.Driver
	matrix scenario.Matrix
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New creates an Orchestrator. The driver is not shut down by the orchestrator.
func New(cfg *config.Config, driver browser.Driver, matrix scenario.Matrix, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil || driver == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if len(matrix) == 0 {
		return nil, fmt.Errorf("cannot initialize orchestrator with an empty matrix")
	}
	return &Orchestrator{
		cfg:    cfg,
		driver: driver,
		matrix: matrix,
		logger: logger.Named("orchestrator"),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}, nil
}

// run is the state of one execution of the matrix.
type run struct {
	cfg      *config.Config
	logger   *zap.Logger
	now      func() time.Time
	registry *registry.Registry
	sessions *session.Manager
	catalog  *backOfficeCatalog
	factory  *fixture.Factory
	fixture  *fixture.Fixture
	report   *results.Report

	backOfficePageID string
}

// Plan expands the step plan of every scenario without touching a browser.
func (o *Orchestrator) Plan() [][]scenario.PlannedStep {
	return Plan(o.cfg, o.matrix)
}

// Plan expands the step plan of every scenario of matrix.
func Plan(cfg *config.Config, matrix scenario.Matrix) [][]scenario.PlannedStep {
	r := &run{cfg: cfg}
	runner := scenario.NewRunner(r.deliveryTimeSteps(), cfg.Run.StepTimeout, zap.NewNop())
	plans := make([][]scenario.PlannedStep, 0, len(matrix))
	for i, set := range matrix {
		plans = append(plans, runner.Plan(i, set))
	}
	return plans
}

// Run executes login, fixture creation, the matrix and teardown. The report
// is always returned; the error is non-nil when setup failed or the matrix
// was aborted. Teardown runs on a context detached from ctx so that an
// interrupted run still deletes its fixture and releases the browser.
func (o *Orchestrator) Run(ctx context.Context) (*results.Report, error) {
	runID := o.newID()
	logger := observability.ForRun(o.logger, runID)

	reg := RegisterPageObjects(registry.New(logger))
	r := &run{
		cfg:      o.cfg,
		logger:   logger,
		now:      o.now,
		registry: reg,
		sessions: session.NewManager(o.driver, reg, logger),
		catalog:  &backOfficeCatalog{registry: reg},
		factory:  fixture.NewFactory(runID, bo.SettingsUpdatedMessage, bo.ProductDeletedMessage, logger),
		report: &results.Report{
			RunID:     runID,
			Started:   o.now(),
			Driver:    o.driver.Name(),
			Phases:    []results.PhaseResult{},
			Scenarios: []results.ScenarioResult{},
		},
	}
	logger.Info("Starting run.", zap.String("driver", o.driver.Name()), zap.Int("scenarios", len(o.matrix)))

	runner := scenario.NewRunner(r.deliveryTimeSteps(), o.cfg.Run.StepTimeout, logger)
	runner.Recover = r.recoverSession

	runErr := r.setup(ctx)
	if runErr == nil {
		r.report.Scenarios, runErr = runner.RunMatrix(ctx, o.matrix)
	} else {
		r.report.Scenarios = runner.SkipMatrix(o.matrix)
		runErr = fmt.Errorf("%w: %w", ErrSetupFailed, runErr)
	}

	teardownCtx, cancel := browser.DetachWithTimeout(ctx, o.cfg.Run.TeardownTimeout)
	defer cancel()
	r.teardown(teardownCtx)

	r.report.Finished = o.now()
	counts := r.report.StepCounts()
	logger.Info("Run finished.",
		zap.Bool("passed", r.report.Passed()),
		zap.Int("steps_passed", counts.Passed),
		zap.Int("steps_failed", counts.Failed),
		zap.Int("steps_skipped", counts.Skipped),
		zap.Duration("duration", r.report.Finished.Sub(r.report.Started)),
	)
	return r.report, runErr
}

// setup runs the phases that precede the matrix and stops at the first failure.
func (r *run) setup(ctx context.Context) error {
	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{results.PhaseLogin, r.login},
		{results.PhaseFixtureCreate, r.createFixture},
		{results.PhaseOpenSettings, r.goToProductSettings},
	}
	for _, p := range phases {
		if err := r.phase(ctx, p.name, r.cfg.Run.StepTimeout, p.fn); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// phase runs fn under timeout and records its PhaseResult.
func (r *run) phase(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	log := r.logger.With(zap.String("phase", name))
	log.Info("Running phase.")

	phaseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := r.now()
	err := fn(phaseCtx)
	res := results.PhaseResult{
		Name:     name,
		Status:   results.StatusPassed,
		Started:  started,
		Duration: r.now().Sub(started),
	}
	if err != nil {
		res.Status = results.StatusFailed
		res.Message = err.Error()
		res.ErrorKind = scenario.Classify(err)
		log.Error("Phase failed.", zap.String("error_kind", res.ErrorKind), zap.Error(err))
	} else {
		log.Info("Phase passed.", zap.Duration("duration", res.Duration))
	}
	r.report.Phases = append(r.report.Phases, res)
	return err
}

// login opens the back office page every scenario returns to and signs in.
func (r *run) login(ctx context.Context) error {
	if err := r.sessions.CreateSession(ctx); err != nil {
		return err
	}
	page, err := r.sessions.OpenPage(ctx)
	if err != nil {
		return err
	}
	r.backOfficePageID = page.ID()

	login, err := registry.Lookup[*bo.LoginPage](r.registry, pages.RoleLogin)
	if err != nil {
		return err
	}
	if err := login.Open(ctx, r.cfg.Shop.BOURL); err != nil {
		return fmt.Errorf("open back office: %w", err)
	}
	onLogin, err := login.IsLoginPage(ctx)
	if err != nil {
		return err
	}
	if err := verify.True("bo.login.visible", onLogin).Err(); err != nil {
		return err
	}
	if err := login.Login(ctx, r.cfg.Shop.AdminEmail, r.cfg.Shop.AdminPassword); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	rejected, err := login.LoginRejected(ctx)
	if err != nil {
		return err
	}
	if err := verify.Equal("bo.login.rejected", false, rejected).Err(); err != nil {
		return err
	}

	dashboard, err := registry.Lookup[*bo.DashboardPage](r.registry, pages.RoleDashboard)
	if err != nil {
		return err
	}
	title, err := dashboard.PageTitle(ctx)
	if err != nil {
		return err
	}
	return verify.Contains("bo.dashboard.title", bo.DashboardPageTitle, title).Err()
}

func (r *run) createFixture(ctx context.Context) error {
	spec := fixture.Spec{Type: r.cfg.Fixture.Type, Quantity: r.cfg.Fixture.Quantity}
	fx, err := r.factory.Create(ctx, r.catalog, spec)
	if err != nil {
		return err
	}
	r.fixture = fx
	r.report.Fixture = fx.Name()
	return nil
}

// teardown deletes the fixture when one was created and always destroys the
// session. Failures are recorded, never returned.
func (r *run) teardown(ctx context.Context) {
	if r.fixture != nil {
		err := r.phase(ctx, results.PhaseFixtureDelete, r.cfg.Run.TeardownTimeout, r.deleteFixture)
		if err != nil {
			r.report.TeardownErrors = append(r.report.TeardownErrors, err.Error())
		}
	}
	if err := r.sessions.DestroySession(ctx); err != nil {
		r.logger.Error("Failed to release browser session.", zap.Error(err))
		r.report.TeardownErrors = append(r.report.TeardownErrors, err.Error())
	}
}

func (r *run) deleteFixture(ctx context.Context) error {
	if err := r.returnToFirstPage(ctx); err != nil {
		return err
	}
	if err := r.factory.Delete(ctx, r.catalog, r.fixture); err != nil {
		return err
	}
	return r.catalog.checkCatalogRestored(ctx)
}

// returnToFirstPage closes storefront tabs a fatal error may have left open.
func (r *run) returnToFirstPage(ctx context.Context) error {
	for len(r.sessions.Pages()) > 1 {
		if err := r.sessions.ClosePage(ctx, 0); err != nil {
			return err
		}
	}
	return nil
}
