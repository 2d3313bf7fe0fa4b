// Package store persists sweep records in SQLite. The schema is managed
// with versioned migrations; all writes retry on transient busy errors.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/packwave/internal/timeutil"
)

// DB wraps the sweeps database connection.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Open opens (creating if necessary) the sweeps database at path and
// applies the connection pragmas. Use ":memory:" for an ephemeral
// database. The schema is not touched; run MigrateUp for that.
func Open(path string) (*DB, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an explicit clock driving retry backoff.
func OpenWithClock(path string, clock timeutil.Clock) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	db := &DB{DB: sqlDB, clock: clock}
	if err := db.applyPragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// applyPragmas sets the connection pragmas every open needs: WAL for
// concurrent readers during sweep writes, a busy timeout as first-line
// contention handling (retryOnBusy is the backstop), and NORMAL
// synchronous which is safe under WAL.
func (db *DB) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}
