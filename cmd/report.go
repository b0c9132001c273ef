// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/config"
	"github.com/xkilldash9x/crosscheck-cli/internal/observability"
	"github.com/xkilldash9x/crosscheck-cli/internal/reporting"
	"github.com/xkilldash9x/crosscheck-cli/internal/results"
	"github.com/xkilldash9x/crosscheck-cli/internal/store"
)

// reportStore is the part of store.Store the commands depend on.
type reportStore interface {
	SaveReport(ctx context.Context, report *results.Report) error
	LoadReport(ctx context.Context, runID string) (*results.Report, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// storeProvider defines an interface for components that can create a report
// store. Tests inject a fake instead of a live database connection.
type storeProvider interface {
	// Create returns the store, a cleanup function to release resources, and an
	// error if the creation fails.
	Create(ctx context.Context, cfg *config.Config) (reportStore, func(), error)
}

// defaultStoreProvider is the concrete implementation of storeProvider used in
// production. It establishes a real connection to the PostgreSQL database.
type defaultStoreProvider struct{}

// NewStoreProvider is a factory function that creates a new defaultStoreProvider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

// Create connects to PostgreSQL, makes sure the report tables exist and
// returns the store with a cleanup function closing the pool.
func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (reportStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (CROSSCHECK_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := storeService.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}

// reportOptions are the flags of the report command.
type reportOptions struct {
	runID      string
	input      string
	list       bool
	limit      int
	outputPath string
	format     string
}

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider) *cobra.Command {
	var opts reportOptions

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render or list stored run reports",
		Long: `Renders a past run, either loaded from the database by run ID or read back
from a JSON report file, in any of the supported formats. With --list, prints
the most recent runs stored in the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if opts.format == "" {
				opts.format = cfg.Run.Format
			}
			return runReport(ctx, logger, cfg, opts, provider, cmd.OutOrStdout())
		},
	}

	reportCmd.Flags().StringVar(&opts.runID, "run-id", "", "The ID of the run to render from the database")
	reportCmd.Flags().StringVarP(&opts.input, "input", "i", "", "Render a JSON report file instead of a stored run")
	reportCmd.Flags().BoolVar(&opts.list, "list", false, "List the most recent stored runs")
	reportCmd.Flags().IntVar(&opts.limit, "limit", 20, "Number of runs printed by --list")
	reportCmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	reportCmd.Flags().StringVarP(&opts.format, "format", "f", "", "Report format: text, json or junit")
	reportCmd.MarkFlagsMutuallyExclusive("run-id", "input", "list")
	reportCmd.MarkFlagsOneRequired("run-id", "input", "list")

	return reportCmd
}

// runReport contains the core, testable logic of the report command.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	opts reportOptions,
	provider storeProvider,
	stdout io.Writer,
) error {
	if opts.input != "" {
		report, err := readReportFile(opts.input)
		if err != nil {
			return err
		}
		return writeReport(logger, report, opts.format, opts.outputPath, stdout)
	}

	reports, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	// Ensure cleanup is not nil before deferring (safe for fakes that might not provide a cleanup).
	if cleanup != nil {
		defer cleanup()
	}

	if opts.list {
		runs, err := reports.ListRuns(ctx, opts.limit)
		if err != nil {
			return err
		}
		return printRuns(stdout, runs)
	}

	logger.Info("Loading stored report", zap.String("run_id", opts.runID))
	report, err := reports.LoadReport(ctx, opts.runID)
	if err != nil {
		return err
	}
	return writeReport(logger, report, opts.format, opts.outputPath, stdout)
}

func readReportFile(path string) (*results.Report, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer f.Close()
	return reporting.DecodeJSON(f)
}

func printRuns(out io.Writer, runs []store.RunSummary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tDURATION\tDRIVER\tRESULT")
	for _, r := range runs {
		result := "failed"
		if r.Passed {
			result = "passed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Started.UTC().Format(time.RFC3339), r.Finished.Sub(r.Started).Round(time.Millisecond), r.Driver, result)
	}
	return tw.Flush()
}
