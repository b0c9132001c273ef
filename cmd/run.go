// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/browser/cdpdriver"
	"github.com/xkilldash9x/crosscheck-cli/internal/browser/pwdriver"
	"github.com/xkilldash9x/crosscheck-cli/internal/config"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
	"github.com/xkilldash9x/crosscheck-cli/internal/orchestrator"
	"github.com/xkilldash9x/crosscheck-cli/internal/reporting"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
	"github.com/xkilldash9x/crosscheck-cli/internal/scenario"
)

// ErrRunFailed is returned when a run completed but did not pass. The report
// already carries the diagnostics, so it is not logged again.
var ErrRunFailed = errors.New("run did not pass")

// driverFactory creates the browser driver selected by the configuration.
type driverFactory func(cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error)

func newDriver(cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	switch cfg.Driver {
	case config.DriverPlaywright:
		return pwdriver.New(cfg, logger), nil
	case config.DriverChromedp:
		return cdpdriver.New(cfg, logger), nil
	}
	return nil, fmt.Errorf("unsupported browser driver: %s", cfg.Driver)
}

func newRunCmd(drivers driverFactory, provider storeProvider) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the delivery time scenario matrix against the configured shop",
		Long: `Logs into the back office, creates an out-of-stock fixture product, then for
every scenario of the matrix changes the stock settings and checks the delivery
time block on the storefront product page. The fixture is deleted and the
browser released even when the run fails or is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runCrosscheck(ctx, logger, cfg, drivers, provider, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().String("driver", "", "Browser driver: playwright or chromedp. (Overrides config/env)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().StringP("matrix", "m", "", "Scenario matrix YAML file. Defaults to the built-in matrix.")
	runCmd.Flags().Duration("step-timeout", 0, "Per-step timeout. (Overrides config/env)")
	runCmd.Flags().StringP("output", "o", "", "Report output path. If unset, the report is printed to stdout.")
	runCmd.Flags().StringP("format", "f", "", "Report format: text, json or junit. (Overrides config/env)")
	runCmd.Flags().Bool("persist", false, "Save the report to the database. (Overrides config/env)")

	return runCmd
}

// loadMatrix returns the configured matrix file or the built-in matrix.
func loadMatrix(cfg *config.Config) (scenario.Matrix, error) {
	if cfg.Run.MatrixFile == "" {
		return scenario.DefaultMatrix(), nil
	}
	path, err := expandPath(cfg.Run.MatrixFile)
	if err != nil {
		return nil, err
	}
	return scenario.LoadMatrix(path)
}

// runCrosscheck contains the core, testable logic of the run command.
func runCrosscheck(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	drivers driverFactory,
	provider storeProvider,
	stdout io.Writer,
) error {
	if cfg.Shop.AdminPassword == "" {
		return fmt.Errorf("shop.admin_password is not configured (CROSSCHECK_ADMIN_PASSWORD)")
	}
	matrix, err := loadMatrix(cfg)
	if err != nil {
		return err
	}

	driver, err := drivers(cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		// Shutdown must run even when ctx was canceled by a signal.
		shutdownCtx, cancel := browser.DetachWithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := driver.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser driver did not shut down cleanly.", zap.Error(err))
		}
	}()

	orch, err := orchestrator.New(cfg, driver, matrix, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	report, runErr := orch.Run(ctx)
	if report != nil {
		if err := writeReport(logger, report, cfg.Run.Format, cfg.Run.Output, stdout); err != nil {
			return errors.Join(runErr, err)
		}
		if cfg.Database.Persist {
			if err := persistReport(ctx, logger, cfg, provider, report); err != nil {
				return errors.Join(runErr, err)
			}
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Run aborted by user signal.")
		}
		return runErr
	}
	if !report.Passed() {
		return fmt.Errorf("%w: %s", ErrRunFailed, report.FirstFailure())
	}
	return nil
}

// persistReport saves the report on a context detached from a canceled run.
func persistReport(ctx context.Context, logger *zap.Logger, cfg *config.Config, provider storeProvider, report *results.Report) error {
	saveCtx, cancel := browser.DetachWithTimeout(ctx, 30*time.Second)
	defer cancel()

	reports, cleanup, err := provider.Create(saveCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := reports.SaveReport(saveCtx, report); err != nil {
		return fmt.Errorf("failed to persist report: %w", err)
	}
	logger.Info("Report persisted.", zap.String("run_id", report.RunID))
	return nil
}

// writeReport renders report to outputPath, or to stdout when no path is set.
func writeReport(logger *zap.Logger, report *results.Report, format, outputPath string, stdout io.Writer) error {
	var (
		reporter reporting.Reporter
		err      error
	)
	if outputPath == "" || outputPath == "stdout" {
		reporter, err = reporting.NewWithWriter(format, nopCloser{stdout})
	} else {
		if outputPath, err = expandPath(outputPath); err != nil {
			return err
		}
		reporter, err = reporting.New(format, outputPath)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Warn("Failed to close reporter cleanly.", zap.Error(err))
		}
	}()

	if err := reporter.Write(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if outputPath != "" && outputPath != "stdout" {
		logger.Info("Report successfully written to file", zap.String("path", outputPath))
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
