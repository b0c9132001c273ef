// Package store persists run reports to PostgreSQL so past runs can be listed
// and re-rendered.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when no report is stored under a run id.
var ErrNotFound = errors.New("store: run not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateSchema = `
        CREATE TABLE IF NOT EXISTS crosscheck_runs (
            run_id      TEXT PRIMARY KEY,
            started_at  TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            driver      TEXT NOT NULL,
            fixture     TEXT NOT NULL,
            passed      BOOLEAN NOT NULL,
            report      JSONB NOT NULL
        );
        CREATE TABLE IF NOT EXISTS crosscheck_steps (
            run_id         TEXT NOT NULL REFERENCES crosscheck_runs (run_id) ON DELETE CASCADE,
            scenario_index INTEGER NOT NULL,
            step_id        TEXT NOT NULL,
            status         TEXT NOT NULL,
            error_kind     TEXT NOT NULL,
            message        TEXT NOT NULL,
            started_at     TIMESTAMPTZ,
            duration_ms    BIGINT NOT NULL,
            PRIMARY KEY (run_id, scenario_index, step_id)
        );
    `
	sqlUpsertRun = `
        INSERT INTO crosscheck_runs (run_id, started_at, finished_at, driver, fixture, passed, report)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (run_id) DO UPDATE SET
            finished_at = EXCLUDED.finished_at,
            passed = EXCLUDED.passed,
            report = EXCLUDED.report;
    `
	sqlDeleteSteps = `DELETE FROM crosscheck_steps WHERE run_id = $1;`
	sqlInsertStep  = `
        INSERT INTO crosscheck_steps (run_id, scenario_index, step_id, status, error_kind, message, started_at, duration_ms)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	sqlGetReport = `SELECT report FROM crosscheck_runs WHERE run_id = $1;`
	sqlListRuns  = `
        SELECT run_id, started_at, finished_at, driver, passed
        FROM crosscheck_runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Driver   string
	Passed   bool
}

// Store provides a PostgreSQL implementation of report persistence.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the report tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveReport writes the report and one row per recorded step in a single
// transaction. Saving a run id again replaces its steps.
func (s *Store) SaveReport(ctx context.Context, report *results.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("store: report has no run id")
	}
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit returns ErrTxClosed.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlUpsertRun,
		report.RunID, report.Started.UTC(), report.Finished.UTC(),
		report.Driver, report.Fixture, report.Passed(), doc,
	); err != nil {
		return fmt.Errorf("failed to upsert run %s: %w", report.RunID, err)
	}
	if _, err := tx.Exec(ctx, sqlDeleteSteps, report.RunID); err != nil {
		return fmt.Errorf("failed to clear steps of run %s: %w", report.RunID, err)
	}
	for _, sc := range report.Scenarios {
		for _, st := range sc.Steps {
			var started *time.Time
			if !st.Started.IsZero() {
				utc := st.Started.UTC()
				started = &utc
			}
			if _, err := tx.Exec(ctx, sqlInsertStep,
				report.RunID, sc.Index, st.ID, string(st.Status),
				st.ErrorKind, st.Message, started, st.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("failed to insert step %s of scenario %d: %w", st.ID, sc.Index, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Report saved.", zap.String("run_id", report.RunID), zap.Int("steps", report.StepCounts().Total()))
	return nil
}

// LoadReport returns the report stored under runID, or ErrNotFound.
func (s *Store) LoadReport(ctx context.Context, runID string) (*results.Report, error) {
	rows, err := s.pool.Query(ctx, sqlGetReport, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error during row iteration: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	var doc []byte
	if err := rows.Scan(&doc); err != nil {
		return nil, fmt.Errorf("failed to scan run row: %w", err)
	}

	var report results.Report
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, fmt.Errorf("failed to decode stored report %s: %w", runID, err)
	}
	return &report, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Started, &r.Finished, &r.Driver, &r.Passed); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
