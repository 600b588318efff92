package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    stepper TEXT NOT NULL,
    steps INTEGER NOT NULL,
    steps_taken INTEGER NOT NULL,
    duration REAL NOT NULL,
    tau REAL NOT NULL,
    created TEXT NOT NULL,
    params TEXT,   -- JSON object
    metrics TEXT,  -- JSON object
    status TEXT NOT NULL,  -- 'ok', 'failed', 'canceled'
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InitSchema creates the catalog tables on a fresh database and rejects
// databases written by a newer schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	switch {
	case version == 0:
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	case version > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported %d", version, SchemaVersion)
	}
	return nil
}
