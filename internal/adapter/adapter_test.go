// SPDX-License-Identifier: MIT

package adapter

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tidewatch/vidsync/internal/persistence/sqlite"
	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/platform/platformtest"
	"github.com/tidewatch/vidsync/internal/source"
	"github.com/tidewatch/vidsync/internal/watermark"
)

func newTestEnv(t *testing.T) (*sql.DB, *watermark.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adapter.db")
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return db, watermark.NewStore(db)
}

func drain(t *testing.T, ch <-chan Result) []Result {
	t.Helper()
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	return out
}

// TestFavorite_ColdStart matches scenario 1: a fresh source with no
// watermark takes every item across all pages.
func TestFavorite_ColdStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	_, store := newTestEnv(t)

	fc := platformtest.NewFakeClient()
	fc.SetFavoritePages("list-1", platform.FavoriteMeta{Title: "Favs"}, []platform.Page{
		{HasNext: true, Items: []platform.ItemOrErr{
			{Info: source.VideoInfo{PlatformVideoID: "A", ReleaseTS: time.Unix(100, 0)}},
			{Info: source.VideoInfo{PlatformVideoID: "B", ReleaseTS: time.Unix(90, 0)}},
		}},
		{HasNext: false, Items: []platform.ItemOrErr{
			{Info: source.VideoInfo{PlatformVideoID: "C", ReleaseTS: time.Unix(80, 0)}},
		}},
	})

	fav := NewFavorite(source.Favorite{ListID: "list-1", Path: "/p"}, fc, store)
	ch, err := fav.Refresh(ctx)
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	require.Equal(t, "A", results[0].Info.PlatformVideoID)
	require.Equal(t, "C", results[2].Info.PlatformVideoID)
}

// TestSubmission_IncrementalShortCircuit matches scenario 2: pagination
// stops the moment an item fails should_take, fetching no further pages.
func TestSubmission_IncrementalShortCircuit(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	db, store := newTestEnv(t)

	require.NoError(t, (watermark.SubmissionUpdate{CreatorID: "creator-1", Path: "/p", Watermark: time.Unix(200, 0)}).Commit(ctx, db))

	fc := platformtest.NewFakeClient()
	fc.SetSubmissionPages("creator-1", platform.SubmissionMeta{CreatorName: "Creator"}, []platform.Page{
		{HasNext: true, Items: []platform.ItemOrErr{
			{Info: source.VideoInfo{PlatformVideoID: "D", ReleaseTS: time.Unix(250, 0)}},
			{Info: source.VideoInfo{PlatformVideoID: "E", ReleaseTS: time.Unix(210, 0)}},
			{Info: source.VideoInfo{PlatformVideoID: "F", ReleaseTS: time.Unix(190, 0)}},
		}},
		{HasNext: false, Items: []platform.ItemOrErr{
			{Info: source.VideoInfo{PlatformVideoID: "G", ReleaseTS: time.Unix(150, 0)}},
		}},
	})

	sub := NewSubmission(source.Submission{CreatorID: "creator-1", Path: "/p"}, fc, store)
	ch, err := sub.Refresh(ctx)
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 2, "F is the boundary item and must not be yielded")
	require.Equal(t, "D", results[0].Info.PlatformVideoID)
	require.Equal(t, "E", results[1].Info.PlatformVideoID)
	require.Equal(t, 1, fc.PageFetchCount("submission:creator-1"), "page 2 must never be fetched")
}

// TestFavorite_MidStreamMalformedItem matches scenario 4: a decode failure
// mid-page is surfaced as an Err result without aborting the rest of the page.
func TestFavorite_MidStreamMalformedItem(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	_, store := newTestEnv(t)

	fc := platformtest.NewFakeClient()
	fc.SetFavoritePages("list-1", platform.FavoriteMeta{}, []platform.Page{
		{HasNext: false, Items: []platform.ItemOrErr{
			{Info: source.VideoInfo{PlatformVideoID: "G", ReleaseTS: time.Unix(300, 0)}},
			{Err: &platform.Error{Sentinel: platform.ErrMalformed, Operation: "favorite.list"}},
			{Info: source.VideoInfo{PlatformVideoID: "H", ReleaseTS: time.Unix(290, 0)}},
		}},
	})

	fav := NewFavorite(source.Favorite{ListID: "list-1", Path: "/p"}, fc, store)
	ch, err := fav.Refresh(ctx)
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	require.NoError(t, results[2].Err)
	require.Equal(t, "H", results[2].Info.PlatformVideoID)
}

// TestFavorite_AuthFailure matches scenario 6: an auth error on page 1 is
// fatal for the cycle and yields a single Err.
func TestFavorite_AuthFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	_, store := newTestEnv(t)

	fc := platformtest.NewFakeClient()
	fc.SetFavoritePages("list-1", platform.FavoriteMeta{}, []platform.Page{
		{HasNext: true, Items: []platform.ItemOrErr{{Info: source.VideoInfo{PlatformVideoID: "A"}}}},
	})
	fc.SetFatalErr("favorite:list-1", &platform.Error{Sentinel: platform.ErrAuth, Operation: "favorite.list", Status: 401})

	fav := NewFavorite(source.Favorite{ListID: "list-1", Path: "/p"}, fc, store)
	ch, err := fav.Refresh(ctx)
	require.NoError(t, err)

	results := drain(t, ch)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	require.True(t, platform.IsFatal(results[0].Err))
}

func TestWatchLater_ShouldTakeIsInclusive(t *testing.T) {
	wl := &WatchLater{}
	w := time.Unix(100, 0)
	require.True(t, wl.ShouldTake(w, w), "watch later must take items exactly at the watermark boundary")
	require.False(t, wl.ShouldTake(time.Unix(99, 0), w))
}

func TestBase_ShouldTakeIsStrict(t *testing.T) {
	b := &Base{}
	w := time.Unix(100, 0)
	require.False(t, b.ShouldTake(w, w), "the default comparison drops items exactly at the boundary")
	require.True(t, b.ShouldTake(time.Unix(101, 0), w))
}
