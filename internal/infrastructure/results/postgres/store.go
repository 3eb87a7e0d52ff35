package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

// Store is the database-backed result recorder. It mirrors the filesystem
// store's semantics: interim checkpoints are upserted per configuration key,
// final records are append-only.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across evaluate/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS interim_results (
	config_key TEXT PRIMARY KEY,
	outcomes JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_results (
	id BIGSERIAL PRIMARY KEY,
	config_key TEXT NOT NULL,
	record JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluation_results_config_key ON evaluation_results(config_key);
CREATE INDEX IF NOT EXISTS idx_evaluation_results_created_at ON evaluation_results(created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Store) WriteInterim(ctx context.Context, key string, outcomes []domain.Outcome) error {
	payload, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("marshal interim outcomes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO interim_results (config_key, outcomes, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (config_key) DO UPDATE SET outcomes = EXCLUDED.outcomes, updated_at = EXCLUDED.updated_at
`, key, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert interim record: %w", err)
	}
	return nil
}

func (s *Store) WriteFinal(ctx context.Context, key string, run domain.EvaluationRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal final record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO evaluation_results (config_key, record, created_at)
VALUES ($1,$2,$3)
`, key, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert final record: %w", err)
	}
	return nil
}

func (s *Store) LoadFinalRuns(ctx context.Context) ([]domain.EvaluationRun, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT record
FROM evaluation_results
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("list final records: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.EvaluationRun, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan final record: %w", err)
		}
		var run domain.EvaluationRun
		if err := json.Unmarshal(raw, &run); err != nil {
			return nil, fmt.Errorf("decode final record: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate final records: %w", err)
	}
	return runs, nil
}
