package blackboard

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// SQLiteBackend is the in-tree stand-in for an external SQL session
// store: tables `session_state`, `archived_memory`,
// `error_knowledge`. A production deployment would point this contract at
// Postgres (POSTGRES_URL) — that driver is the named external adapter
// and is intentionally not imported here; SQLiteBackend
// exercises the identical SQLBackend interface with `github.com/mattn/go-sqlite3`,
// grounded on internal/store/local.go's schema-management style
// (CREATE TABLE IF NOT EXISTS, migrations-on-open).
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if necessary) a sqlite-backed session
// store at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_state (
			session_id TEXT PRIMARY KEY,
			profile_data TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			locked_by TEXT,
			lock_expires_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS archived_memory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_file TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB,
			tags TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS error_knowledge (
			pattern TEXT UNIQUE NOT NULL,
			symptom TEXT,
			recommendation TEXT,
			last_occurred TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return fmt.Errorf("blackboard: sqlite migrate: %w", err)
		}
	}
	return nil
}

// LoadProfile implements SQLBackend.
func (b *SQLiteBackend) LoadProfile(session string) (*taskmodel.ProjectProfile, error) {
	row := b.db.QueryRow(`SELECT profile_data FROM session_state WHERE session_id = ?`, session)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var profile taskmodel.ProjectProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("blackboard: corrupt sql profile for session %s: %w", session, err)
	}
	return &profile, nil
}

// SaveProfile implements SQLBackend: upserts profile_data and claims the
// (session, agent) lock with the given expiry.
func (b *SQLiteBackend) SaveProfile(session string, profile *taskmodel.ProjectProfile, agent string, lockExpiry time.Time) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(`
		INSERT INTO session_state (session_id, profile_data, updated_at, locked_by, lock_expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			profile_data = excluded.profile_data,
			updated_at = excluded.updated_at,
			locked_by = excluded.locked_by,
			lock_expires_at = excluded.lock_expires_at
	`, session, string(data), time.Now().UTC().Format(time.RFC3339), agent, lockExpiry.UTC().Format(time.RFC3339))
	return err
}

// ReleaseLock implements SQLBackend: clears the lock iff locked_by = agent.
func (b *SQLiteBackend) ReleaseLock(session, agent string) error {
	_, err := b.db.Exec(`
		UPDATE session_state SET locked_by = NULL, lock_expires_at = NULL
		WHERE session_id = ? AND locked_by = ?
	`, session, agent)
	return err
}

// CleanupStaleLocks implements SQLBackend.
func (b *SQLiteBackend) CleanupStaleLocks() (int, error) {
	res, err := b.db.Exec(`
		UPDATE session_state SET locked_by = NULL, lock_expires_at = NULL
		WHERE lock_expires_at IS NOT NULL AND lock_expires_at < ?
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close releases the underlying database handle.
func (b *SQLiteBackend) Close() error { return b.db.Close() }
