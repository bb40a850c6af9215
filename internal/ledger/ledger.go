package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Kamal2131/stock-etl-airflow/pkg/database"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID           int64
	Pipeline     string // "fno" or "equity"
	Key          string // underlying or universe name
	TradeDate    time.Time
	Status       string
	RowCount     int
	SymbolCount  int
	FailedCount  int
	ErrorCount   int
	WarningCount int
	Detail       string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Repository persists pipeline runs to Postgres. The ledger is optional:
// a nil *Repository is valid and every method is a no-op on it, so
// callers never branch on whether a database was configured.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithField("component", "ledger"),
	}
}

// EnsureSchema creates the ledger schema and table if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil {
		return nil
	}

	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS etl`,
		`CREATE TABLE IF NOT EXISTS etl.runs (
			id            BIGSERIAL PRIMARY KEY,
			pipeline      TEXT        NOT NULL,
			key           TEXT        NOT NULL,
			trade_date    DATE        NOT NULL,
			status        TEXT        NOT NULL,
			row_count     INTEGER     NOT NULL DEFAULT 0,
			symbol_count  INTEGER     NOT NULL DEFAULT 0,
			failed_count  INTEGER     NOT NULL DEFAULT 0,
			error_count   INTEGER     NOT NULL DEFAULT 0,
			warning_count INTEGER     NOT NULL DEFAULT 0,
			detail        TEXT        NOT NULL DEFAULT '',
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_pipeline_date ON etl.runs (pipeline, trade_date)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	return nil
}

// SaveRun records one pipeline execution.
func (r *Repository) SaveRun(ctx context.Context, run Run) error {
	if r == nil {
		return nil
	}

	query := `
		INSERT INTO etl.runs (
			pipeline, key, trade_date, status,
			row_count, symbol_count, failed_count, error_count, warning_count,
			detail, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Pool.Exec(ctx, query,
		run.Pipeline, run.Key, run.TradeDate, run.Status,
		run.RowCount, run.SymbolCount, run.FailedCount, run.ErrorCount, run.WarningCount,
		run.Detail, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"pipeline": run.Pipeline,
		"key":      run.Key,
		"status":   run.Status,
		"rows":     run.RowCount,
	}).Debug("Recorded pipeline run")

	return nil
}

// LatestRuns returns the most recent runs for a pipeline, newest first.
func (r *Repository) LatestRuns(ctx context.Context, pipeline string, limit int) ([]Run, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, pipeline, key, trade_date, status,
		       row_count, symbol_count, failed_count, error_count, warning_count,
		       detail, started_at, finished_at
		FROM etl.runs
		WHERE pipeline = $1
		ORDER BY finished_at DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, pipeline, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.Pipeline, &run.Key, &run.TradeDate, &run.Status,
			&run.RowCount, &run.SymbolCount, &run.FailedCount, &run.ErrorCount, &run.WarningCount,
			&run.Detail, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
