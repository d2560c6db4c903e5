// Package store is the mistake book: durable storage for assignments and
// the mistake records hanging off them. Pure data layer — scoring and
// recommendations live in the analytics package.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store provides access to assignments and mistake records in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates a Store backed by the SQLite database at path.
// It applies recommended pragmas and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// dsn appends the pragma set to the database path. Pragmas ride on the DSN
// rather than a one-off Exec so every connection database/sql opens gets
// them; foreign_keys in particular is per-connection, and the cascade
// delete of mistake records depends on it.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep +
		"_pragma=journal_mode(wal)" +
		"&_pragma=foreign_keys(on)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(normal)"
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assignments (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'active',
		due_date   TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_status ON assignments(status);
	CREATE INDEX IF NOT EXISTS idx_assignments_due ON assignments(due_date);

	CREATE TABLE IF NOT EXISTS mistakes (
		id            TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		description   TEXT NOT NULL,
		image_ref     TEXT NOT NULL DEFAULT '',
		topic_tag     TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mistakes_assignment ON mistakes(assignment_id);
	CREATE INDEX IF NOT EXISTS idx_mistakes_topic ON mistakes(topic_tag);
	`
	_, err := s.db.Exec(schema)
	return err
}

// newID returns a fresh ULID. ULIDs sort by creation time, so listing by
// primary key yields insertion order.
func newID() string {
	return ulid.Make().String()
}

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. BANXUE_DB environment variable
// 2. $XDG_DATA_HOME/banxue/banxue.db
// 3. ~/.local/share/banxue/banxue.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("BANXUE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "banxue", "banxue.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
