package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/sim/metrics"
)

// ErrRunNotFound is returned by GetRun for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore saves run reports to a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and initialises its schema.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores r, replacing any earlier report with the same run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, r metrics.RunReport) error {
	if r.RunID == "" {
		return errors.New("save run: empty run id")
	}
	overall, err := json.Marshal(r.Overall)
	if err != nil {
		return fmt.Errorf("encode overall improvement: %w", err)
	}
	usage, err := json.Marshal(r.Usage)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, r.RunID); err != nil {
		return fmt.Errorf("replace run %s: %w", r.RunID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, seed, nodes, connections, started_at, finished_at, overall, usage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Seed, r.Nodes, r.Connections,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
		string(overall), string(usage),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	for pos, sr := range r.Scenarios {
		for _, sm := range []*metrics.ScenarioMetrics{sr.Baseline, sr.Adaptation} {
			if sm == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO scenario_results (
					run_id, position, scenario, mode,
					avg_latency_ms, avg_bandwidth_kbps, avg_packet_loss_pct, avg_jitter_ms,
					avg_transfer_time_ms, resilience_score, efficiency_score, connections
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.RunID, pos, sr.Scenario, string(sm.Mode),
				sm.AvgLatency, sm.AvgBandwidth, sm.AvgPacketLoss, sm.AvgJitter,
				sm.AvgTransferTime, sm.ResilienceScore, sm.EfficiencyScore, sm.Connections,
			); err != nil {
				return fmt.Errorf("insert %s/%s result: %w", sr.Scenario, sm.Mode, err)
			}
		}
		imp := sr.Improvement
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scenario_improvements (
				run_id, scenario, overall, latency, bandwidth, packet_loss, transfer_time, resilience
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, sr.Scenario, imp.Overall, imp.Latency, imp.Bandwidth,
			imp.PacketLoss, imp.TransferTime, imp.Resilience,
		); err != nil {
			return fmt.Errorf("insert %s improvement: %w", sr.Scenario, err)
		}
	}
	return tx.Commit()
}

// GetRun loads the report stored under runID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (metrics.RunReport, error) {
	var (
		r                    metrics.RunReport
		started, finished    string
		overallRaw, usageRaw string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, seed, nodes, connections, started_at, finished_at, overall, usage
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.Seed, &r.Nodes, &r.Connections, &started, &finished, &overallRaw, &usageRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return metrics.RunReport{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return metrics.RunReport{}, fmt.Errorf("query run %s: %w", runID, err)
	}
	if r.StartedAt, err = parseTime(started); err != nil {
		return metrics.RunReport{}, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return metrics.RunReport{}, err
	}
	if err := json.Unmarshal([]byte(overallRaw), &r.Overall); err != nil {
		return metrics.RunReport{}, fmt.Errorf("decode overall improvement: %w", err)
	}
	if err := json.Unmarshal([]byte(usageRaw), &r.Usage); err != nil {
		return metrics.RunReport{}, fmt.Errorf("decode usage: %w", err)
	}

	scenarios, err := s.loadScenarios(ctx, runID)
	if err != nil {
		return metrics.RunReport{}, err
	}
	r.Scenarios = scenarios
	return r, nil
}

func (s *SQLiteStore) loadScenarios(ctx context.Context, runID string) ([]metrics.ScenarioReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario, mode, avg_latency_ms, avg_bandwidth_kbps, avg_packet_loss_pct, avg_jitter_ms,
		       avg_transfer_time_ms, resilience_score, efficiency_score, connections
		FROM scenario_results WHERE run_id = ? ORDER BY position, mode DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scenario results: %w", err)
	}
	defer rows.Close()

	var out []metrics.ScenarioReport
	index := make(map[string]int)
	for rows.Next() {
		var (
			sm   metrics.ScenarioMetrics
			mode string
		)
		if err := rows.Scan(&sm.Scenario, &mode, &sm.AvgLatency, &sm.AvgBandwidth, &sm.AvgPacketLoss,
			&sm.AvgJitter, &sm.AvgTransferTime, &sm.ResilienceScore, &sm.EfficiencyScore, &sm.Connections); err != nil {
			return nil, fmt.Errorf("scan scenario result: %w", err)
		}
		sm.Mode = metrics.Mode(mode)

		i, ok := index[sm.Scenario]
		if !ok {
			i = len(out)
			index[sm.Scenario] = i
			out = append(out, metrics.ScenarioReport{Scenario: sm.Scenario})
		}
		m := sm
		if sm.Mode == metrics.ModeAdaptation {
			out[i].Adaptation = &m
		} else {
			out[i].Baseline = &m
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	impRows, err := s.db.QueryContext(ctx, `
		SELECT scenario, overall, latency, bandwidth, packet_loss, transfer_time, resilience
		FROM scenario_improvements WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scenario improvements: %w", err)
	}
	defer impRows.Close()
	for impRows.Next() {
		var (
			name string
			imp  metrics.PerformanceImprovement
		)
		if err := impRows.Scan(&name, &imp.Overall, &imp.Latency, &imp.Bandwidth,
			&imp.PacketLoss, &imp.TransferTime, &imp.Resilience); err != nil {
			return nil, fmt.Errorf("scan scenario improvement: %w", err)
		}
		if i, ok := index[name]; ok {
			out[i].Improvement = imp
		}
	}
	return out, impRows.Err()
}

// ListRuns returns every stored run, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]metrics.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seed, nodes, connections, started_at, finished_at
		FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []metrics.RunInfo
	for rows.Next() {
		var (
			info              metrics.RunInfo
			started, finished string
		)
		if err := rows.Scan(&info.RunID, &info.Seed, &info.Nodes, &info.Connections, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if info.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if info.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteRun removes a stored run. Deleting an unknown run is not an error.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
