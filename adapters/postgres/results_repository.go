// Package postgres persists analysis runs and their test results.
package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"claimscope/domain/core"
	"claimscope/domain/stats"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens and pings a PostgreSQL connection.
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// RunRecord is the persisted metadata of one analysis run.
type RunRecord struct {
	ID         core.RunID `db:"id"`
	SourceFile string     `db:"source_file"`
	RawRows    int        `db:"raw_rows"`
	CleanRows  int        `db:"clean_rows"`
	Alpha      float64    `db:"alpha"`
	CreatedAt  time.Time  `db:"created_at"`
}

// ResultsRepository stores runs and test results in PostgreSQL.
type ResultsRepository struct {
	db *sqlx.DB
}

// NewResultsRepository creates a PostgreSQL results repository.
func NewResultsRepository(db *sqlx.DB) *ResultsRepository {
	return &ResultsRepository{db: db}
}

// EnsureSchema creates the tables this repository writes to.
func (r *ResultsRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id UUID PRIMARY KEY,
			source_file TEXT NOT NULL,
			raw_rows INTEGER NOT NULL,
			clean_rows INTEGER NOT NULL,
			alpha DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS test_results (
			id UUID PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			test TEXT NOT NULL,
			group_column TEXT NOT NULL,
			group_a TEXT NOT NULL,
			group_b TEXT NOT NULL,
			metric TEXT NOT NULL,
			statistic DOUBLE PRECISION,
			effect_size DOUBLE PRECISION,
			effect_unit TEXT,
			p_value DOUBLE PRECISION NOT NULL,
			q_value DOUBLE PRECISION NOT NULL,
			sample_size_a INTEGER NOT NULL,
			sample_size_b INTEGER NOT NULL,
			fdr_method TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create test_results table: %w", err)
	}
	return nil
}

// SaveRun upserts the run metadata row.
func (r *ResultsRepository) SaveRun(ctx context.Context, run RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, source_file, raw_rows, clean_rows, alpha, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			source_file = EXCLUDED.source_file,
			raw_rows = EXCLUDED.raw_rows,
			clean_rows = EXCLUDED.clean_rows,
			alpha = EXCLUDED.alpha`,
		run.ID, run.SourceFile, run.RawRows, run.CleanRows, run.Alpha, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// SaveResults inserts the full result set of one run in a transaction.
func (r *ResultsRepository) SaveResults(ctx context.Context, runID core.RunID, results []stats.TestResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, result := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO test_results (
				id, run_id, test, group_column, group_a, group_b, metric,
				statistic, effect_size, effect_unit, p_value, q_value,
				sample_size_a, sample_size_b, fdr_method
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			core.NewID(), runID, result.Test, result.GroupColumn, result.GroupA, result.GroupB,
			result.Metric, nullNaN(result.Statistic), nullNaN(result.EffectSize), result.EffectUnit,
			result.PValue, result.QValue, result.SampleSizeA, result.SampleSizeB, result.FDRMethod)
		if err != nil {
			return fmt.Errorf("failed to insert test result %s: %w", result.Label(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ListResults returns all persisted results of one run, newest first.
func (r *ResultsRepository) ListResults(ctx context.Context, runID core.RunID) ([]stats.TestResult, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT test, group_column, group_a, group_b, metric,
			   statistic, effect_size, effect_unit, p_value, q_value,
			   sample_size_a, sample_size_b, fdr_method
		FROM test_results
		WHERE run_id = $1
		ORDER BY q_value ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query test results: %w", err)
	}
	defer rows.Close()

	var results []stats.TestResult
	for rows.Next() {
		var result stats.TestResult
		var statistic, effectSize *float64
		err := rows.Scan(
			&result.Test, &result.GroupColumn, &result.GroupA, &result.GroupB, &result.Metric,
			&statistic, &effectSize, &result.EffectUnit, &result.PValue, &result.QValue,
			&result.SampleSizeA, &result.SampleSizeB, &result.FDRMethod)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		if statistic != nil {
			result.Statistic = *statistic
		}
		if effectSize != nil {
			result.EffectSize = *effectSize
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// nullNaN maps NaN and Inf to SQL NULL; DOUBLE PRECISION rejects them.
func nullNaN(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
