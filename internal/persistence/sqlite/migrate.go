// SPDX-License-Identifier: MIT

package sqlite

import (
	"database/sql"
	"fmt"
)

// schemaVersion is the target PRAGMA user_version. Migrate is idempotent and
// a no-op once the database is already at this version.
const schemaVersion = 1

// migrations holds the forward-only DDL for each schema version, indexed by
// the version it moves the database TO.
var migrations = map[int]string{
	1: `
CREATE TABLE favorite_source (
	list_id    TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	watermark  TEXT,
	updated_at TEXT NOT NULL
);

CREATE TABLE collection_source (
	collection_id TEXT NOT NULL,
	owner_id      TEXT NOT NULL,
	kind          TEXT NOT NULL,
	path          TEXT NOT NULL,
	watermark     TEXT,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (collection_id, owner_id)
);

CREATE TABLE submission_source (
	creator_id TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	watermark  TEXT,
	updated_at TEXT NOT NULL
);

CREATE TABLE watch_later_source (
	id         TEXT PRIMARY KEY CHECK (id = 'watch_later'),
	path       TEXT NOT NULL,
	watermark  TEXT,
	updated_at TEXT NOT NULL
);

CREATE TABLE video (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	platform_video_id TEXT NOT NULL,
	title             TEXT NOT NULL,
	release_ts        TEXT NOT NULL,
	source_kind       TEXT NOT NULL,
	source_id         TEXT NOT NULL,
	local_path        TEXT NOT NULL,
	ingested_at       TEXT NOT NULL,
	download_state    TEXT NOT NULL
);

CREATE UNIQUE INDEX idx_video_identity
	ON video (source_kind, source_id, platform_video_id);

CREATE INDEX idx_video_source
	ON video (source_kind, source_id);
`,
}

// Migrate applies every pending migration in order, tracked via
// PRAGMA user_version, matching the gating convention the rest of the
// persistence layer uses for its own stores.
func Migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read user_version: %w", err)
	}

	for v := current + 1; v <= schemaVersion; v++ {
		stmt, ok := migrations[v]
		if !ok {
			return fmt.Errorf("sqlite: no migration registered for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("sqlite: begin migration %d: %w", v, err)
		}
		if _, err := tx.Exec(stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: apply migration %d: %w", v, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: set user_version to %d: %w", v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite: commit migration %d: %w", v, err)
		}
	}

	return nil
}
