// Package store persists finished simulation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    seed INTEGER NOT NULL,
    nodes INTEGER NOT NULL,
    connections INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    overall TEXT NOT NULL,  -- JSON PerformanceImprovement
    usage TEXT NOT NULL     -- JSON UsageStats
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- One row per scenario pass
CREATE TABLE IF NOT EXISTS scenario_results (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    scenario TEXT NOT NULL,
    mode TEXT NOT NULL,  -- 'baseline' or 'adaptation'
    avg_latency_ms REAL NOT NULL,
    avg_bandwidth_kbps REAL NOT NULL,
    avg_packet_loss_pct REAL NOT NULL,
    avg_jitter_ms REAL NOT NULL,
    avg_transfer_time_ms REAL NOT NULL,
    resilience_score REAL NOT NULL,
    efficiency_score REAL NOT NULL,
    connections INTEGER NOT NULL,
    PRIMARY KEY (run_id, scenario, mode)
);

CREATE TABLE IF NOT EXISTS scenario_improvements (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    scenario TEXT NOT NULL,
    overall REAL NOT NULL,
    latency REAL NOT NULL,
    bandwidth REAL NOT NULL,
    packet_loss REAL NOT NULL,
    transfer_time REAL NOT NULL,
    resilience REAL NOT NULL,
    PRIMARY KEY (run_id, scenario)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables on a fresh database. Existing databases at
// the current version are left alone.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err == nil && version >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
