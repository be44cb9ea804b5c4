// SPDX-License-Identifier: MIT

// Package watermark persists and advances the high-water mark each Source
// Adapter uses to short-circuit pagination once it reaches already-seen
// content.
package watermark

import (
	"context"
	"database/sql"
	"time"
)

// Store reads and advances the watermark row for each source variant.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-migrated database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Favorite returns the current watermark for a favorite-list source. The
// second return value is false if the source has never been refreshed,
// in which case the adapter must take every item on its first pass.
func (s *Store) Favorite(ctx context.Context, listID string) (time.Time, bool, error) {
	return s.query(ctx, `SELECT watermark FROM favorite_source WHERE list_id = ?`, listID)
}

// Collection returns the current watermark for a curated-collection source.
func (s *Store) Collection(ctx context.Context, collectionID, ownerID string) (time.Time, bool, error) {
	return s.query(ctx, `SELECT watermark FROM collection_source WHERE collection_id = ? AND owner_id = ?`, collectionID, ownerID)
}

// Submission returns the current watermark for a creator-uploads source.
func (s *Store) Submission(ctx context.Context, creatorID string) (time.Time, bool, error) {
	return s.query(ctx, `SELECT watermark FROM submission_source WHERE creator_id = ?`, creatorID)
}

// WatchLater returns the current watermark for the singleton watch-later queue.
func (s *Store) WatchLater(ctx context.Context) (time.Time, bool, error) {
	return s.query(ctx, `SELECT watermark FROM watch_later_source WHERE id = 'watch_later'`)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}
