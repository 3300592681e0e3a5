package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"weaver/internal/generator"
	"weaver/internal/util/jsonutil"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS generated_records (
    id SERIAL PRIMARY KEY,
    run_id TEXT NOT NULL,
    type_name TEXT NOT NULL,
    position INT NOT NULL,
    record JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(run_id, type_name, position)
);
CREATE INDEX IF NOT EXISTS idx_generated_records_run_id ON generated_records(run_id);
`

const insertRecord = `
INSERT INTO generated_records (run_id, type_name, position, record)
VALUES ($1, $2, $3, $4)
ON CONFLICT (run_id, type_name, position)
DO UPDATE SET record=EXCLUDED.record
`

// PostgresSink stores one JSONB row per record.
type PostgresSink struct {
	db     *sql.DB
	schema initGate
}

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresSink(db), nil
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	return s.schema.Do(func() error {
		_, err := s.db.ExecContext(ctx, createRecordsTable)
		return err
	})
}

// Write inserts all records of the run in one transaction.
func (s *PostgresSink) Write(ctx context.Context, runID string, results map[string]generator.Result) error {
	runID, err := checkRunID(runID)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, name := range typeNames(results) {
		for i, rec := range results[name].Records {
			body, err := jsonutil.MarshalNoEscape(rec)
			if err != nil {
				return fmt.Errorf("encode %s[%d]: %w", name, i, err)
			}
			if _, err := stmt.ExecContext(ctx, runID, name, i, string(body)); err != nil {
				return fmt.Errorf("insert %s[%d]: %w", name, i, err)
			}
		}
	}
	return tx.Commit()
}

func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
