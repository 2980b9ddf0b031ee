// Package store wraps the embedded relational database: WAL-mode open,
// idempotent migrations, a bounded connection pool, per-subsystem circuit
// breakers, and an FTS5 mirror of message text.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the embedded database handle plus its supporting machinery.
type Store struct {
	db       *sql.DB
	breakers *breakerSet
}

// Open opens (creating if absent) the SQLite database at dbPath under WAL,
// applies pending migrations, and returns a ready Store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Single-writer discipline: the pool hands out at most one open
	// connection so SQLite's own single-writer constraint is never
	// contended at the database/sql layer either.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Store{db: conn, breakers: newBreakerSet()}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for packages that need to compose
// their own queries (engines hold a *Store, not a *sql.DB, to keep the
// circuit breaker and error-mapping in the loop for every call).
func (s *Store) DB() *sql.DB {
	return s.db
}
