package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the records table.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id              TEXT PRIMARY KEY,
		kind            TEXT NOT NULL DEFAULT '',
		payload         TEXT NOT NULL DEFAULT '{}',
		status          TEXT NOT NULL DEFAULT 'NEW',
		date_inserted   TEXT NOT NULL,
		failure_count   INTEGER NOT NULL DEFAULT 0,
		last_failure_at TEXT,
		claimed_at      TEXT,
		completed_at    TEXT,
		last_error      TEXT NOT NULL DEFAULT ''
	)`,

	// Covers the candidate selection query (status filter + insertion window).
	`CREATE INDEX IF NOT EXISTS idx_records_status_date ON records(status, date_inserted)`,
	`CREATE INDEX IF NOT EXISTS idx_records_date ON records(date_inserted)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
