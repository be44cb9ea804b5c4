// SPDX-License-Identifier: MIT

// Package sqlite opens the shared SQLite connection pool used by every
// per-source-variant table and the video table, with the pragmas the rest
// of the persistence layer depends on.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

// Config defines standard SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int // keep modest; WAL allows concurrent readers, one writer
}

// DefaultConfig returns the recommended configuration for vidsync's workload:
// many short-lived inserts from concurrently-refreshing sources, a handful
// of admin-surface reads.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 16,
	}
}

// Open initializes a SQLite connection pool with mandatory pragmas applied
// to every connection via the DSN, so pool growth can never produce a
// connection missing WAL mode or the busy timeout.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	return db, nil
}
