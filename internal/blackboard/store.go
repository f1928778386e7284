// Package blackboard implements C1: the durable project profile, task
// table and provenance log, with file + optional SQL backends and
// session locking.
package blackboard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/errs"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// SQLBackend is the contract a SQL-backed session store satisfies.
// The concrete Postgres driver is a named external adapter and stays
// out of this module; only the sqlite-backed implementation in
// sql_store.go ships in-tree, as the stand-in that exercises this exact
// interface.
type SQLBackend interface {
	// LoadProfile returns the stored profile for session, or nil if none exists.
	LoadProfile(session string) (*taskmodel.ProjectProfile, error)
	// SaveProfile upserts the profile and claims a (session, agent) lock
	// with the given expiry.
	SaveProfile(session string, profile *taskmodel.ProjectProfile, agent string, lockExpiry time.Time) error
	// ReleaseLock clears the lock iff it is currently held by agent.
	ReleaseLock(session, agent string) error
	// CleanupStaleLocks clears every lock whose expiry is in the past.
	CleanupStaleLocks() (int, error)
	Close() error
}

// Store is C1's combined file+SQL blackboard store.
type Store struct {
	filePath string
	lockTTL  time.Duration
	lockWait time.Duration

	sql SQLBackend // nil if POSTGRES_URL (or equivalent) was not configured

	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSQLBackend attaches an optional SQL backend. Absence means
// file-only operation.
func WithSQLBackend(b SQLBackend) Option {
	return func(s *Store) { s.sql = b }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New constructs a Store rooted at filePath with the given lock TTL and
// acquisition timeout.
func New(filePath string, lockTTL, lockWait time.Duration, opts ...Option) *Store {
	s := &Store{filePath: filePath, lockTTL: lockTTL, lockWait: lockWait, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load returns the current ProjectProfile for session. It tries the SQL
// backend first (if configured), falling back to the file backend on SQL
// failure; if neither returns a profile, it starts from a fresh default.
// SQL errors are non-fatal; file errors are fatal.
func (s *Store) Load(session string) (*taskmodel.ProjectProfile, error) {
	if err := s.migrateLegacyFile(); err != nil {
		return nil, errs.Wrap(errs.TransientExternal, "blackboard.Load.migrate", err)
	}

	if s.sql != nil {
		profile, err := s.sql.LoadProfile(session)
		if err != nil {
			s.log.Warn("sql backend load failed, falling back to file", zap.Error(err))
		} else if profile != nil {
			return profile, nil
		}
	}

	profile, err := s.loadFile()
	if err != nil {
		if os.IsNotExist(err) {
			return taskmodel.NewProfile(), nil
		}
		return nil, errs.Wrap(errs.TransientExternal, "blackboard.Load.file", err)
	}
	return profile, nil
}

func (s *Store) loadFile() (*taskmodel.ProjectProfile, error) {
	unlock, err := acquireFileLock(s.filePath+".lock", s.lockWait)
	if err != nil {
		return nil, errs.Wrap(errs.LockContention, "blackboard.loadFile", err)
	}
	defer unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}
	var profile taskmodel.ProjectProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("blackboard: corrupt profile file %s: %w", s.filePath, err)
	}
	if profile.Tasks == nil {
		profile.Tasks = make(map[string]*taskmodel.Task)
	}
	if profile.WorkerModels == nil {
		profile.WorkerModels = map[string]string{"default": "default"}
	}
	return &profile, nil
}

// Save persists profile to both backends. The SQL path is best-effort and
// additionally claims a (session, agent) lock with a 5-minute expiry; the
// file path is strict.
func (s *Store) Save(session string, profile *taskmodel.ProjectProfile, agent string) error {
	if s.sql != nil {
		expiry := time.Now().Add(s.lockTTL)
		if err := s.sql.SaveProfile(session, profile, agent, expiry); err != nil {
			s.log.Warn("sql backend save failed (best-effort)", zap.Error(err))
		}
	}

	if err := s.saveFile(profile); err != nil {
		return errs.Wrap(errs.TransientExternal, "blackboard.Save.file", err)
	}
	return nil
}

func (s *Store) saveFile(profile *taskmodel.ProjectProfile) error {
	unlock, err := acquireFileLock(s.filePath+".lock", s.lockWait)
	if err != nil {
		return errs.Wrap(errs.LockContention, "blackboard.saveFile", err)
	}
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

// ReleaseLock clears the SQL-backend lock iff held by agent. A no-op when
// no SQL backend is configured (the file backend's lock is released
// automatically at the end of each Load/Save call).
func (s *Store) ReleaseLock(session, agent string) error {
	if s.sql == nil {
		return nil
	}
	return s.sql.ReleaseLock(session, agent)
}

// CleanupStaleLocks clears any SQL-backend lock whose expiry has passed.
// Safe to call at any time.
func (s *Store) CleanupStaleLocks() (int, error) {
	if s.sql == nil {
		return 0, nil
	}
	return s.sql.CleanupStaleLocks()
}

// legacyFileName is the pre-migration state filename detected on first
// load.
const legacyFileName = "swarm_state.json"

func (s *Store) migrateLegacyFile() error {
	legacy := filepath.Join(filepath.Dir(s.filePath), legacyFileName)
	if legacy == s.filePath {
		return nil
	}
	info, err := os.Stat(legacy)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := os.Stat(s.filePath); err == nil {
		// Current-format file already exists; don't clobber it.
		return nil
	}
	renamed := fmt.Sprintf("%s.%d.bak", legacy, time.Now().UTC().Unix())
	if err := os.Rename(legacy, renamed); err != nil {
		return err
	}
	s.log.Info("migrated legacy blackboard file", zap.String("from", legacy), zap.String("to", renamed))
	// The renamed legacy file becomes the seed for the new-format file.
	data, err := os.ReadFile(renamed)
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0o644)
}
