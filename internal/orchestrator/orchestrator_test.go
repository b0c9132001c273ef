// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser/browsertest"
	"github.com/xkilldash9x/crosscheck-cli/internal/config"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/fo"
	"github.com/xkilldash9x/crosscheck-cli/internal/pages/shoptest"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
	"github.com/xkilldash9x/crosscheck-cli/internal/scenario"
)

const testRunID = "3f2a5c1e-8d4b-4e6f-9a7c-1b2d3e4f5a6b"

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Shop.BOURL = shoptest.BOURL
	cfg.Shop.AdminEmail = shoptest.Email
	cfg.Shop.AdminPassword = shoptest.Password
	cfg.Run.StepTimeout = 5 * time.Second
	cfg.Run.TeardownTimeout = 10 * time.Second
	return cfg
}

// harness wires an orchestrator to a simulated shop.
type harness struct {
	shop   *shoptest.Shop
	driver *browsertest.Driver
	orch   *Orchestrator
}

func newHarness(t *testing.T, cfg *config.Config, logger *zap.Logger) *harness {
	t.Helper()
	shop := shoptest.New()
	driver := browsertest.NewDriver()
	shop.Install(driver)
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	orch, err := New(cfg, driver, scenario.DefaultMatrix(), logger)
	require.NoError(t, err)
	orch.newID = func() string { return testRunID }
	return &harness{shop: shop, driver: driver, orch: orch}
}

func (h *harness) sessionReleased(t *testing.T) {
	t.Helper()
	contexts := h.driver.Contexts()
	require.Len(t, contexts, 1)
	assert.True(t, contexts[0].IsClosed(), "browser context must be released")
	for _, p := range contexts[0].Pages() {
		assert.True(t, p.IsClosed(), "page %s left open", p.ID())
	}
}

func stepIDs(s results.ScenarioResult) []string {
	out := make([]string, 0, len(s.Steps))
	for _, st := range s.Steps {
		out = append(out, st.ID)
	}
	return out
}

func stepByID(t *testing.T, s results.ScenarioResult, id string) results.StepResult {
	t.Helper()
	for _, st := range s.Steps {
		if st.ID == id {
			return st
		}
	}
	t.Fatalf("step %s not recorded", id)
	return results.StepResult{}
}

func TestNew_NilDependencies(t *testing.T) {
	logger := zaptest.NewLogger(t)
	driver := browsertest.NewDriver()

	_, err := New(nil, driver, scenario.DefaultMatrix(), logger)
	assert.Error(t, err)
	_, err = New(testConfig(), nil, scenario.DefaultMatrix(), logger)
	assert.Error(t, err)
	_, err = New(testConfig(), driver, nil, logger)
	assert.Error(t, err)
}

func TestRun_EnableThenDisable(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.Passed(), report.FirstFailure())
	assert.Equal(t, testRunID, report.RunID)
	assert.Equal(t, "fake", report.Driver)
	assert.NotEmpty(t, report.Fixture)
	assert.Empty(t, report.TeardownErrors)

	require.Len(t, report.Phases, 4)
	for i, name := range []string{results.PhaseLogin, results.PhaseFixtureCreate, results.PhaseOpenSettings, results.PhaseFixtureDelete} {
		assert.Equal(t, name, report.Phases[i].Name)
		assert.Equal(t, results.StatusPassed, report.Phases[i].Status)
	}

	require.Len(t, report.Scenarios, 2)
	assert.Equal(t, []string{
		"enableStockManagement", "viewMyShop0", "searchProduct0",
		"deliveryTimeBlockVisible0", "deliveryTimeBlockText0", "goBackToBo0",
	}, stepIDs(report.Scenarios[0]))
	assert.Equal(t, []string{
		"disableStockManagement", "viewMyShop1", "searchProduct1",
		"deliveryTimeBlockVisible1", "goBackToBo1",
	}, stepIDs(report.Scenarios[1]), "text step must be absent for the disabled set")

	// One fixture, created and deleted once; the catalog is back to its baseline.
	assert.Equal(t, 1, h.shop.Created())
	assert.Equal(t, 1, h.shop.Deleted())
	assert.False(t, h.shop.HasProduct(report.Fixture))
	assert.Len(t, h.shop.Products(), 4)

	assert.Equal(t, "en", h.shop.Language())
	allow, text := h.shop.Settings()
	assert.False(t, allow)
	assert.Empty(t, text)

	h.sessionReleased(t)
}

func TestRun_TextMismatchAbortsOnlyItsScenario(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.shop.DeliveryOverride = "2-3 weeks"

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err, "an assertion failure is not fatal to the matrix")
	assert.False(t, report.Passed())

	enable := report.Scenarios[0]
	assert.Equal(t, results.StatusFailed, enable.Status)
	failed := stepByID(t, enable, "deliveryTimeBlockText0")
	assert.Equal(t, results.StatusFailed, failed.Status)
	assert.Equal(t, results.KindAssertion, failed.ErrorKind)
	assert.Contains(t, failed.Message, `"8-9 days"`)
	assert.Contains(t, failed.Message, `"2-3 weeks"`)
	assert.Equal(t, results.StatusSkipped, stepByID(t, enable, "goBackToBo0").Status)

	// The next scenario starts from the back office again and passes.
	assert.Equal(t, results.StatusPassed, report.Scenarios[1].Status)
	assert.True(t, strings.HasPrefix(report.FirstFailure(), "deliveryTimeBlockText0: "))

	assert.Equal(t, 1, h.shop.Deleted())
	h.sessionReleased(t)
}

func TestRun_RecoveryReopensProductSettings(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newHarness(t, testConfig(), zap.New(core))
	// The first save lands on the dashboard, leaving the settings page.
	h.shop.BounceSettingsSaves = 1

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Passed())

	enable := report.Scenarios[0]
	assert.Equal(t, results.StatusFailed, enable.Status)
	configure := stepByID(t, enable, "enableStockManagement")
	assert.Equal(t, results.KindAssertion, configure.ErrorKind)
	assert.Contains(t, configure.Message, shoptest.InvalidTokenMessage)
	assert.Equal(t, results.StatusSkipped, stepByID(t, enable, "viewMyShop0").Status)

	assert.Len(t, logs.FilterMessage("Reopening product settings after failed scenario.").All(), 1)

	disable := report.Scenarios[1]
	assert.Equal(t, results.StatusPassed, disable.Status, report.FirstFailure())
	assert.Equal(t, 2, h.shop.SettingsSaves())
	allow, text := h.shop.Settings()
	assert.False(t, allow)
	assert.Empty(t, text)

	assert.Equal(t, 1, h.shop.Deleted())
	h.sessionReleased(t)
}

func TestRun_BlockHiddenWhenEnabled(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.shop.HideDeliveryBlock = true

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	enable := report.Scenarios[0]
	visible := stepByID(t, enable, "deliveryTimeBlockVisible0")
	assert.Equal(t, results.KindAssertion, visible.ErrorKind)
	assert.Equal(t, results.StatusSkipped, stepByID(t, enable, "deliveryTimeBlockText0").Status)
	assert.Equal(t, results.StatusPassed, report.Scenarios[1].Status)
}

func TestRun_LoginRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Shop.AdminPassword = "wrong"
	h := newHarness(t, cfg, nil)

	report, err := h.orch.Run(context.Background())
	require.ErrorIs(t, err, ErrSetupFailed)

	require.Len(t, report.Phases, 1)
	assert.Equal(t, results.StatusFailed, report.Phases[0].Status)
	assert.Equal(t, results.KindAssertion, report.Phases[0].ErrorKind)
	assert.Contains(t, report.Phases[0].Message, "bo.login.rejected")
	for _, s := range report.Scenarios {
		assert.Equal(t, results.StatusSkipped, s.Status)
	}
	assert.Zero(t, h.shop.Created())
	assert.Zero(t, h.shop.Deleted(), "nothing to delete without a fixture")
	h.sessionReleased(t)
}

func TestRun_FixtureNotAcknowledged(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.shop.CreateAck = "An error occurred."

	report, err := h.orch.Run(context.Background())
	require.ErrorIs(t, err, ErrSetupFailed)

	create, ok := report.Phase(results.PhaseFixtureCreate)
	require.True(t, ok)
	assert.Equal(t, results.KindFixtureCreation, create.ErrorKind)
	_, ok = report.Phase(results.PhaseFixtureDelete)
	assert.False(t, ok)
	assert.Empty(t, report.Fixture)
	h.sessionReleased(t)
}

func TestRun_DeletionNotAcknowledged(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.shop.DeleteAck = "Deletion failed."

	report, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	for _, s := range report.Scenarios {
		assert.Equal(t, results.StatusPassed, s.Status)
	}
	del, ok := report.Phase(results.PhaseFixtureDelete)
	require.True(t, ok)
	assert.Equal(t, results.KindFixtureDeletion, del.ErrorKind)
	require.Len(t, report.TeardownErrors, 1)
	assert.False(t, report.Passed(), "a failed teardown fails the run")
	assert.Equal(t, 1, h.shop.Deleted(), "deletion is attempted exactly once")
	h.sessionReleased(t)
}

func TestRun_SessionUnavailable(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.driver.NewContextErr = errors.New("chrome crashed")

	report, err := h.orch.Run(context.Background())
	require.ErrorIs(t, err, ErrSetupFailed)
	assert.Equal(t, results.KindSession, report.Phases[0].ErrorKind)
	assert.Len(t, report.Scenarios, 2)
	assert.Empty(t, h.driver.Contexts())
}

func TestRun_StepTimeoutIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Run.StepTimeout = 500 * time.Millisecond
	h := newHarness(t, cfg, nil)
	h.driver.Setup = func(p *browsertest.Page) {
		h.shop.RenderLogin(p)
		p.Block(fo.SearchInput)
	}

	report, err := h.orch.Run(context.Background())
	var timeoutErr *scenario.StepTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "searchProduct0", timeoutErr.StepID)

	assert.Equal(t, results.KindTimeout, stepByID(t, report.Scenarios[0], "searchProduct0").ErrorKind)
	assert.Equal(t, results.StatusSkipped, report.Scenarios[1].Status)
	for _, st := range report.Scenarios[1].Steps {
		assert.Equal(t, results.StatusSkipped, st.Status)
	}

	// Teardown still closes the storefront tab and deletes the fixture.
	del, ok := report.Phase(results.PhaseFixtureDelete)
	require.True(t, ok)
	assert.Equal(t, results.StatusPassed, del.Status, del.Message)
	assert.Equal(t, 1, h.shop.Deleted())
	h.sessionReleased(t)
}

func TestRun_CanceledStillTearsDown(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.driver.Setup = func(p *browsertest.Page) {
		h.shop.RenderLogin(p)
		// Interrupt the run as the storefront tab opens.
		if p.ID() == "page-2" {
			cancel()
		}
	}

	report, err := h.orch.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, results.KindCanceled, stepByID(t, report.Scenarios[0], "viewMyShop0").ErrorKind)
	assert.Equal(t, results.StatusSkipped, report.Scenarios[1].Status)
	assert.Equal(t, 1, h.shop.Deleted())
	h.sessionReleased(t)
}

func TestRun_LogsCarryRunID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newHarness(t, testConfig(), zap.New(core))

	_, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	finished := logs.FilterMessage("Run finished.").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.Equal(t, testRunID, fields["run_id"])
	assert.Equal(t, true, fields["passed"])

	steps := logs.FilterMessage("Step passed.").FilterField(zap.String("step", "deliveryTimeBlockText0")).All()
	assert.Len(t, steps, 1)
}

func TestPlan(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	plans := h.orch.Plan()
	require.Len(t, plans, 2)

	assert.Len(t, plans[0], 6)
	for _, st := range plans[0] {
		assert.True(t, st.Included)
	}
	assert.Equal(t, scenario.PlannedStep{
		ID:       "deliveryTimeBlockText1",
		Name:     "check delivery time text",
		Included: false,
	}, plans[1][4])
	assert.Empty(t, h.driver.Contexts(), "planning never opens a browser")
}
