// Package store keeps the local practice history: an append-only event log
// in SQLite covering practice sessions, scored segment attempts, and LLM
// requests.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/abhisek/cclprep/internal/config"
)

// Store owns the database handle and hands out repositories.
type Store struct {
	db  *sql.DB
	seq *sequence
}

// Open opens the SQLite database at dsn, creating tables that are
// missing. dsn is a file path or ":memory:".
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite has a single writer, and ":memory:" databases are
	// per-connection.
	db.SetMaxOpenConns(1)

	s, err := setup(db, inMemory(dsn))
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func setup(db *sql.DB, memory bool) (*Store, error) {
	for _, p := range pragmas(memory) {
		if _, err := db.Exec("PRAGMA " + p); err != nil {
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	seq, err := newSequence(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, seq: seq}, nil
}

// pragmas tunes SQLite for one local user. WAL needs a file.
func pragmas(memory bool) []string {
	out := []string{
		"busy_timeout = 5000",
		"foreign_keys = ON",
		"synchronous = NORMAL",
	}
	if !memory {
		out = append([]string{"journal_mode = WAL"}, out...)
	}
	return out
}

func inMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// DB is the underlying handle, for ad-hoc queries and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EventRepo returns the event log repository.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// DefaultDBPath is CCLPREP_DB when set and cclprep.db in DataDir
// otherwise. The parent directory is created.
func DefaultDBPath() (string, error) {
	p := config.Get("DB", "")
	if p == "" {
		dir, err := DataDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(dir, "cclprep.db")
	}
	return p, EnsureDir(p)
}

// DataDir holds the database and the log file: $XDG_DATA_HOME/cclprep,
// falling back to ~/.local/share/cclprep.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "cclprep"), nil
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
