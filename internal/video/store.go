// SPDX-License-Identifier: MIT

package video

import (
	"context"
	"database/sql"
	"time"

	"github.com/tidewatch/vidsync/internal/metrics"
	"github.com/tidewatch/vidsync/internal/source"
)

// dedupCache is the subset of dedup.Cache the store consults. Kept as a
// local interface so a test can supply a trivial fake without importing
// Badger; the only production implementation is *dedup.Cache.
type dedupCache interface {
	Seen(kind source.Kind, sourceID, platformVideoID string) bool
	MarkSeen(kind source.Kind, sourceID, platformVideoID string)
}

// Store persists Video Records and detects duplicates via the database's own
// unique index rather than any in-process bookkeeping, so dedup is correct
// even across process restarts or concurrently-refreshing replicas. An
// optional dedup cache (see internal/dedup) can short-circuit the DB
// round-trip for identities already known to be persisted, but is never the
// source of truth: a cache miss always falls through to the unique index.
type Store struct {
	db    *sql.DB
	cache dedupCache
}

// NewStore wraps an already-migrated database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SetDedupCache attaches an optional pre-insert identity cache. Passing nil
// disables the optimization; Insert always remains correct either way.
func (s *Store) SetDedupCache(cache dedupCache) {
	s.cache = cache
}

// DB returns the backing database handle, for callers (the orchestrator's
// watermark commit) that need to share the same connection pool/transaction
// scope rather than going through Store's own methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Insert persists rec if no row with the same (source_kind, source_id,
// platform_video_id) identity already exists. inserted is false when the
// unique index silently rejected the row — the caller's dedup-idempotence
// guarantee, not an error condition.
func (s *Store) Insert(ctx context.Context, rec Record) (inserted bool, err error) {
	if s.cache != nil && s.cache.Seen(rec.SourceKind, rec.SourceID, rec.PlatformVideoID) {
		metrics.DedupCacheHitsTotal.WithLabelValues(string(rec.SourceKind)).Inc()
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO video
			(platform_video_id, title, release_ts, source_kind, source_id, local_path, ingested_at, download_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.PlatformVideoID,
		rec.Title,
		rec.ReleaseTS.UTC().Format(time.RFC3339),
		string(rec.SourceKind),
		rec.SourceID,
		rec.LocalPath,
		rec.IngestedAt.UTC().Format(time.RFC3339),
		string(rec.State),
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if s.cache != nil {
		s.cache.MarkSeen(rec.SourceKind, rec.SourceID, rec.PlatformVideoID)
	}

	return affected > 0, nil
}

// MaxReleaseTS returns the latest release_ts persisted for a given source.
// ok is false if the source has no persisted videos yet. The orchestrator
// does not call it; it computes the watermark from the stream's items.
func (s *Store) MaxReleaseTS(ctx context.Context, kind source.Kind, sourceID string) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(release_ts) FROM video WHERE source_kind = ? AND source_id = ?
	`, string(kind), sourceID).Scan(&raw)
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

// ByID fetches a single Record by source and platform video id, primarily
// for test assertions.
func (s *Store) ByID(ctx context.Context, kind source.Kind, sourceID, platformVideoID string) (Record, bool, error) {
	var rec Record
	var releaseTS, ingestedAt, sourceKind, state string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, platform_video_id, title, release_ts, source_kind, source_id, local_path, ingested_at, download_state
		FROM video WHERE source_kind = ? AND source_id = ? AND platform_video_id = ?
	`, string(kind), sourceID, platformVideoID).Scan(
		&rec.ID, &rec.PlatformVideoID, &rec.Title, &releaseTS, &sourceKind, &rec.SourceID, &rec.LocalPath, &ingestedAt, &state,
	)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec.SourceKind = source.Kind(sourceKind)
	rec.State = source.DownloadState(state)
	rec.ReleaseTS, err = time.Parse(time.RFC3339, releaseTS)
	if err != nil {
		return Record{}, false, err
	}
	rec.IngestedAt, err = time.Parse(time.RFC3339, ingestedAt)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// CountBySource returns the number of persisted videos for a source, for
// test assertions on how many rows have landed.
func (s *Store) CountBySource(ctx context.Context, kind source.Kind, sourceID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM video WHERE source_kind = ? AND source_id = ?
	`, string(kind), sourceID).Scan(&n)
	return n, err
}
