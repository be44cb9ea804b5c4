// SPDX-License-Identifier: MIT

package watermark

import (
	"context"
	"database/sql"
	"time"
)

// PendingUpdate is the staging container a Source Adapter's AdvanceWatermark
// returns once the orchestrator has consumed its stream: the new high-water
// mark to commit, bound to exactly one source variant. It is the Go-native
// replacement for a tagged union of per-variant update payloads — each
// variant satisfies the interface instead of being matched out of an enum.
type PendingUpdate interface {
	// Commit upserts the source row and advances its watermark in a single
	// statement. It must only be called after the adapter's full page
	// stream has been consumed without a fatal error; item-level errors do
	// not prevent the commit.
	Commit(ctx context.Context, db *sql.DB) error
}

// FavoriteUpdate commits a new watermark for a favorite-list source.
type FavoriteUpdate struct {
	ListID    string
	Path      string
	Watermark time.Time
}

func (u FavoriteUpdate) Commit(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO favorite_source (list_id, path, watermark, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(list_id) DO UPDATE SET
			path = excluded.path,
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
	`, u.ListID, u.Path, u.Watermark.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	return err
}

// CollectionUpdate commits a new watermark for a curated-collection source.
type CollectionUpdate struct {
	CollectionID string
	OwnerID      string
	Kind         string
	Path         string
	Watermark    time.Time
}

func (u CollectionUpdate) Commit(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO collection_source (collection_id, owner_id, kind, path, watermark, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, owner_id) DO UPDATE SET
			kind = excluded.kind,
			path = excluded.path,
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
	`, u.CollectionID, u.OwnerID, u.Kind, u.Path, u.Watermark.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	return err
}

// SubmissionUpdate commits a new watermark for a creator-uploads source.
type SubmissionUpdate struct {
	CreatorID string
	Path      string
	Watermark time.Time
}

func (u SubmissionUpdate) Commit(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO submission_source (creator_id, path, watermark, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(creator_id) DO UPDATE SET
			path = excluded.path,
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
	`, u.CreatorID, u.Path, u.Watermark.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	return err
}

// WatchLaterUpdate commits a new watermark for the singleton watch-later queue.
type WatchLaterUpdate struct {
	Path      string
	Watermark time.Time
}

func (u WatchLaterUpdate) Commit(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO watch_later_source (id, path, watermark, updated_at)
		VALUES ('watch_later', ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			watermark = excluded.watermark,
			updated_at = excluded.updated_at
	`, u.Path, u.Watermark.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	return err
}
