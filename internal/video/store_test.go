// SPDX-License-Identifier: MIT

package video

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidewatch/vidsync/internal/persistence/sqlite"
	"github.com/tidewatch/vidsync/internal/source"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.db")
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return NewStore(db), db
}

func sampleRecord() Record {
	return Record{
		PlatformVideoID: "bv-001",
		Title:           "Episode One",
		ReleaseTS:       time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		SourceKind:      source.KindFavorite,
		SourceID:        "list-1",
		LocalPath:       "/downloads/list-1/Episode One",
		IngestedAt:      time.Date(2026, 6, 1, 1, 0, 0, 0, time.UTC),
		State:           source.StateDiscovered,
	}
}

func TestInsert_FirstInsertSucceeds(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	inserted, err := store.Insert(ctx, sampleRecord())
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestInsert_DuplicateIdentityIsSilentlyIgnored(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	rec := sampleRecord()

	inserted, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = store.Insert(ctx, rec)
	require.NoError(t, err, "a duplicate insert must not surface as an error")
	require.False(t, inserted, "a duplicate insert must report inserted=false")

	n, err := store.CountBySource(ctx, source.KindFavorite, "list-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestInsert_DistinctSourceForSamePlatformVideoIDIsAllowed(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	rec := sampleRecord()
	inserted, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted)

	rec.SourceID = "list-2"
	inserted, err = store.Insert(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted, "the same platform video under a different source is a distinct identity")
}

func TestMaxReleaseTS_ReflectsLatestPersistedVideo(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	older := sampleRecord()
	older.PlatformVideoID = "bv-001"
	older.ReleaseTS = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	newer := sampleRecord()
	newer.PlatformVideoID = "bv-002"
	newer.ReleaseTS = time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, older)
	require.NoError(t, err)
	_, err = store.Insert(ctx, newer)
	require.NoError(t, err)

	max, ok, err := store.MaxReleaseTS(ctx, source.KindFavorite, "list-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, max.Equal(newer.ReleaseTS))
}

func TestMaxReleaseTS_UnseenSourceReturnsNotOK(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, ok, err := store.MaxReleaseTS(ctx, source.KindFavorite, "nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}

// fakeDedupCache is a minimal in-memory stand-in for *dedup.Cache, used to
// verify Store.Insert consults and updates the cache without needing
// internal/dedup's Badger dependency in this package's tests.
type fakeDedupCache struct {
	seen map[string]bool
}

func newFakeDedupCache() *fakeDedupCache {
	return &fakeDedupCache{seen: make(map[string]bool)}
}

func (f *fakeDedupCache) key(kind source.Kind, sourceID, platformVideoID string) string {
	return string(kind) + ":" + sourceID + ":" + platformVideoID
}

func (f *fakeDedupCache) Seen(kind source.Kind, sourceID, platformVideoID string) bool {
	return f.seen[f.key(kind, sourceID, platformVideoID)]
}

func (f *fakeDedupCache) MarkSeen(kind source.Kind, sourceID, platformVideoID string) {
	f.seen[f.key(kind, sourceID, platformVideoID)] = true
}

func TestInsert_ConsultsDedupCacheToShortCircuitDuplicateWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	cache := newFakeDedupCache()
	store.SetDedupCache(cache)

	rec := sampleRecord()
	inserted, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted)
	require.True(t, cache.Seen(rec.SourceKind, rec.SourceID, rec.PlatformVideoID), "a successful insert must mark the cache")

	inserted, err = store.Insert(ctx, rec)
	require.NoError(t, err)
	require.False(t, inserted, "a cache hit must still report inserted=false, same as a DB-level duplicate")

	n, err := store.CountBySource(ctx, source.KindFavorite, "list-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestInsert_CacheMissStillFallsThroughToUniqueIndex(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	cache := newFakeDedupCache()
	store.SetDedupCache(cache)

	rec := sampleRecord()
	_, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	// Simulate a forgotten/never-seen cache entry (e.g. after a cache
	// restart) for an identity that is, in truth, already persisted: the
	// unique index must still catch it.
	delete(cache.seen, cache.key(rec.SourceKind, rec.SourceID, rec.PlatformVideoID))

	inserted, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	require.False(t, inserted, "the database's unique index remains authoritative even on a cache miss")
}

func TestByID_RoundTripsAllFields(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	rec := sampleRecord()

	_, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	got, ok, err := store.ByID(ctx, source.KindFavorite, "list-1", "bv-001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Title, got.Title)
	require.Equal(t, rec.LocalPath, got.LocalPath)
	require.Equal(t, rec.State, got.State)
	require.True(t, got.ReleaseTS.Equal(rec.ReleaseTS))
}
