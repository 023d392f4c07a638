package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"matchain-gc/models"
)

const ledgerColumns = 9

// PostgresLedger records per-file run statistics in PostgreSQL.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger opens a connection, waits for the server to answer and
// runs the schema migration.
func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pl := &PostgresLedger{db: db}
	if err := pl.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pl, nil
}

func (pl *PostgresLedger) migrate(ctx context.Context) error {
	_, err := pl.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_files (
			id          SERIAL PRIMARY KEY,
			run_id      UUID         NOT NULL,
			filename    TEXT         NOT NULL,
			total       INTEGER      NOT NULL DEFAULT 0,
			success     INTEGER      NOT NULL DEFAULT 0,
			failed      INTEGER      NOT NULL DEFAULT 0,
			skipped     INTEGER      NOT NULL DEFAULT 0,
			interrupted BOOLEAN      NOT NULL DEFAULT FALSE,
			started_at  TIMESTAMPTZ  NOT NULL,
			finished_at TIMESTAMPTZ  NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (run_id, filename)
		);

		CREATE INDEX IF NOT EXISTS idx_run_files_run_id   ON run_files(run_id);
		CREATE INDEX IF NOT EXISTS idx_run_files_filename ON run_files(filename);
	`)
	return err
}

// Write inserts the statistics of one run in batches.
func (pl *PostgresLedger) Write(ctx context.Context, runID string, stats []*models.RunStatistics) error {
	const batchSize = 50
	for i := 0; i < len(stats); i += batchSize {
		end := i + batchSize
		if end > len(stats) {
			end = len(stats)
		}
		query, args := buildLedgerInsert(runID, stats[i:end])
		if _, err := pl.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert run files: %w", err)
		}
	}
	return nil
}

func buildLedgerInsert(runID string, batch []*models.RunStatistics) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*ledgerColumns)

	for idx, s := range batch {
		base := idx * ledgerColumns
		ph := make([]string, ledgerColumns)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		end := s.EndTime
		if end.IsZero() {
			end = s.StartTime
		}
		valueArgs = append(valueArgs,
			runID, s.Filename, s.Total, s.Success, s.Failed, s.Skipped, s.Interrupted, s.StartTime, end)
	}

	query := fmt.Sprintf(`
		INSERT INTO run_files (run_id, filename, total, success, failed, skipped, interrupted, started_at, finished_at)
		VALUES %s
		ON CONFLICT (run_id, filename) DO UPDATE SET
			total = EXCLUDED.total, success = EXCLUDED.success, failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped, interrupted = EXCLUDED.interrupted, finished_at = EXCLUDED.finished_at
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pl *PostgresLedger) Close() error {
	return pl.db.Close()
}
