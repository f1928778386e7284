// Package telemetry implements C2: the append-only event log and its
// success-rate/duration/role-performance statistics.
package telemetry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// ToolStatus enumerates C2.toolStatus's three states.
type ToolStatus string

const (
	StatusReady   ToolStatus = "READY"
	StatusWarning ToolStatus = "WARNING"
	StatusTripped ToolStatus = "TRIPPED"
)

const (
	warningThreshold = 0.7
	trippedThreshold = 0.3
	speedDivisorMS   = 10_000.0
)

// Ledger is the embedded relational telemetry store: an append-only event
// log, plus a memory_snapshots table that the schema creates but no Ledger
// method writes or reads. It uses modernc.org/sqlite (pure Go)
// rather than mattn/go-sqlite3 so telemetry writes never depend on cgo even
// when the blackboard's vector extension build is unavailable.
type Ledger struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates (if necessary) the embedded store at path and applies the
// schema: events(id, timestamp, type, session_id, install_id, data) and
// memory_snapshots(snapshot_id, session_id, timestamp, context_type, data),
// indexed on (session_id, context_type) and (timestamp DESC).
func Open(path string, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = logging.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	l := &Ledger{db: db, log: logging.For(log, logging.CategoryTelemetry)}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			type TEXT NOT NULL,
			session_id TEXT NOT NULL,
			install_id TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memory_snapshots (
			snapshot_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			context_type TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_session_ctx ON memory_snapshots(session_id, context_type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC)`,
	}
	for _, s := range stmts {
		if _, err := l.db.Exec(s); err != nil {
			return fmt.Errorf("telemetry: migrate: %w", err)
		}
	}
	return nil
}

// eventRow is the JSON shape stored in events.data.
type eventRow struct {
	Tool          string            `json:"tool"`
	Role          string            `json:"role"`
	Success       bool              `json:"success"`
	DurationMS    int64             `json:"duration_ms"`
	ErrorCategory string            `json:"error_category,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// Append writes a single event. Failure is logged but never raised to the
// caller. Idempotent: re-delivery with the same ID is a
// no-op (INSERT OR IGNORE on the primary key).
func (l *Ledger) Append(ev taskmodel.TelemetryEvent) {
	data, err := json.Marshal(eventRow{
		Tool: ev.Tool, Role: string(ev.Role), Success: ev.Success,
		DurationMS: ev.DurationMS, ErrorCategory: ev.ErrorCategory, Properties: ev.Properties,
	})
	if err != nil {
		l.log.Warn("telemetry: marshal event failed", zap.Error(err))
		return
	}
	_, err = l.db.Exec(
		`INSERT OR IGNORE INTO events (id, timestamp, type, session_id, install_id, data) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.UTC().Format(time.RFC3339Nano), string(ev.Type), ev.SessionID, ev.InstallID, string(data),
	)
	if err != nil {
		l.log.Warn("telemetry: append failed", zap.Error(err))
		return
	}
	if logging.VerboseTelemetry() {
		l.log.Info("telemetry event appended", zap.String("id", ev.ID), zap.String("tool", ev.Tool), zap.Bool("success", ev.Success))
	}
}

// SuccessRate returns successes/attempts for tool over the last window,
// defaulting optimistically (1.0) on empty data.
func (l *Ledger) SuccessRate(tool string, window time.Duration) float64 {
	rows, err := l.queryToolEvents(tool, window)
	if err != nil || len(rows) == 0 {
		return 1.0
	}
	successes := 0
	for _, r := range rows {
		if r.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(rows))
}

// RolePerformanceIndex = 0.7*successRate + 0.3*speedScore, speedScore =
// max(0, 1 - avgDuration/10000ms).
func (l *Ledger) RolePerformanceIndex(role taskmodel.Role) float64 {
	rows, err := l.queryRoleEvents(role, 24*time.Hour)
	if err != nil || len(rows) == 0 {
		return 1.0
	}
	successes := 0
	var totalDuration int64
	for _, r := range rows {
		if r.Success {
			successes++
		}
		totalDuration += r.DurationMS
	}
	successRate := float64(successes) / float64(len(rows))
	avgDuration := float64(totalDuration) / float64(len(rows))
	speedScore := 1.0 - avgDuration/speedDivisorMS
	if speedScore < 0 {
		speedScore = 0
	}
	return 0.7*successRate + 0.3*speedScore
}

// ProblematicTool is one entry of ProblematicTools' result.
type ProblematicTool struct {
	Tool        string
	Attempts    int
	SuccessRate float64
}

// ProblematicTools returns tools with attempts > 5 and successRate <
// threshold over window.
func (l *Ledger) ProblematicTools(threshold float64, window time.Duration) ([]ProblematicTool, error) {
	since := time.Now().Add(-window).UTC().Format(time.RFC3339Nano)
	rows, err := l.db.Query(`SELECT data FROM events WHERE type = ? AND timestamp >= ?`, string(taskmodel.EventToolUse), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type agg struct {
		attempts, successes int
	}
	byTool := map[string]*agg{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev eventRow
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		a, ok := byTool[ev.Tool]
		if !ok {
			a = &agg{}
			byTool[ev.Tool] = a
		}
		a.attempts++
		if ev.Success {
			a.successes++
		}
	}

	var out []ProblematicTool
	for tool, a := range byTool {
		if a.attempts <= 5 {
			continue
		}
		rate := float64(a.successes) / float64(a.attempts)
		if rate < threshold {
			out = append(out, ProblematicTool{Tool: tool, Attempts: a.attempts, SuccessRate: rate})
		}
	}
	return out, nil
}

// ToolStatus reports READY/WARNING/TRIPPED for tool over the last 24h
func (l *Ledger) ToolStatus(tool string) ToolStatus {
	rate := l.SuccessRate(tool, 24*time.Hour)
	switch {
	case rate < trippedThreshold:
		return StatusTripped
	case rate < warningThreshold:
		return StatusWarning
	default:
		return StatusReady
	}
}

// Prune deletes rows older than ageDays.
func (l *Ledger) Prune(ageDays int) error {
	cutoff := time.Now().AddDate(0, 0, -ageDays).UTC().Format(time.RFC3339Nano)
	_, err := l.db.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff)
	return err
}

// Optimize compacts the store (SQLite VACUUM).
func (l *Ledger) Optimize() error {
	_, err := l.db.Exec(`VACUUM`)
	return err
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// FailurePattern is one entry of ChronicFailurePatterns' result.
type FailurePattern struct {
	ErrorCategory string
	Count         int
}

// ChronicFailurePatterns groups failed events by ErrorCategory over window
// and returns the topN most frequent.
// Events with no ErrorCategory are ignored.
func (l *Ledger) ChronicFailurePatterns(window time.Duration, topN int) ([]FailurePattern, error) {
	since := time.Now().Add(-window).UTC().Format(time.RFC3339Nano)
	rows, err := l.db.Query(`SELECT data FROM events WHERE timestamp >= ?`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev eventRow
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Success || ev.ErrorCategory == "" {
			continue
		}
		counts[ev.ErrorCategory]++
	}

	patterns := make([]FailurePattern, 0, len(counts))
	for cat, n := range counts {
		patterns = append(patterns, FailurePattern{ErrorCategory: cat, Count: n})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].ErrorCategory < patterns[j].ErrorCategory
	})
	if topN > 0 && topN < len(patterns) {
		patterns = patterns[:topN]
	}
	return patterns, nil
}

func (l *Ledger) queryToolEvents(tool string, window time.Duration) ([]eventRow, error) {
	since := time.Now().Add(-window).UTC().Format(time.RFC3339Nano)
	rows, err := l.db.Query(`SELECT data FROM events WHERE type = ? AND timestamp >= ?`, string(taskmodel.EventToolUse), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []eventRow
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev eventRow
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Tool == tool {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (l *Ledger) queryRoleEvents(role taskmodel.Role, window time.Duration) ([]eventRow, error) {
	since := time.Now().Add(-window).UTC().Format(time.RFC3339Nano)
	rows, err := l.db.Query(`SELECT data FROM events WHERE type = ? AND timestamp >= ?`, string(taskmodel.EventTaskRouting), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []eventRow
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev eventRow
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Role == string(role) {
			out = append(out, ev)
		}
	}
	return out, nil
}
