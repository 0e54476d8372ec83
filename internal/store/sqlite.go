package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// dsnPragmas are applied by the driver to every pooled connection.
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB

	// writeMu serializes Update so change sets publish in commit order.
	writeMu sync.Mutex
	events  *broker
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, checks
// its integrity, enables WAL mode, and runs any pending schema migrations.
// A dbPath of ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if dbPath == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		// Enable WAL mode for better concurrent read performance.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	var check string
	if err := db.Get(&check, "PRAGMA quick_check"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if check != "ok" {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, check)
	}

	s := &SQLiteStore{db: db, events: newBroker()}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection and all subscriptions.
func (s *SQLiteStore) Close() error {
	s.events.close()
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Update runs fn inside one transaction and publishes the resulting change
// set after a successful commit. fn must not call back into the store.
func (s *SQLiteStore) Update(ctx context.Context, origin Origin, fn func(Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	t := &sqliteTx{ctx: ctx, tx: tx, now: time.Now().UTC(), writable: true}
	if err := fn(t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if len(t.changes) > 0 {
		s.events.publish(ChangeSet{Origin: origin, Changes: t.changes})
	}
	return nil
}

// View runs fn inside a read transaction, which gives it a consistent
// snapshot of the database.
func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{ctx: ctx, tx: tx, now: time.Now().UTC()})
}

// Subscribe registers for committed change sets.
func (s *SQLiteStore) Subscribe() (<-chan ChangeSet, func()) {
	return s.events.subscribe()
}

// sqliteTx implements Tx on a sqlx transaction.
type sqliteTx struct {
	ctx      context.Context
	tx       *sqlx.Tx
	now      time.Time
	writable bool
	changes  []Change
}

func (t *sqliteTx) checkWritable() error {
	if !t.writable {
		return fmt.Errorf("write in read-only transaction")
	}
	return nil
}

func (t *sqliteTx) record(c Change) {
	t.changes = append(t.changes, c)
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// utcPtr normalizes an optional timestamp for storage.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
