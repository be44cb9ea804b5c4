// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tidewatch/vidsync/internal/adapter"
	"github.com/tidewatch/vidsync/internal/api/middleware"
	"github.com/tidewatch/vidsync/internal/orchestrator"
	"github.com/tidewatch/vidsync/internal/orchestrator/lock"
	"github.com/tidewatch/vidsync/internal/persistence/sqlite"
	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/platform/platformtest"
	"github.com/tidewatch/vidsync/internal/source"
	"github.com/tidewatch/vidsync/internal/video"
	"github.com/tidewatch/vidsync/internal/watermark"
)

func newTestServer(t *testing.T, cfg Config, sources SourceBuilder) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.db")
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	store := video.NewStore(db)
	if sources == nil {
		sources = func() []adapter.VideoSource { return nil }
	}
	return New(cfg, sources, store)
}

func TestHandleHealth_AlwaysOK(t *testing.T) {
	s := newTestServer(t, Config{FanOut: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleReady_NotReadyUntilFirstCycle(t *testing.T) {
	s := newTestServer(t, Config{FanOut: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.RecordCycle(orchestrator.Summary{CorrelationID: "abc"})

	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
}

func TestHandleStatus_ReflectsLastRecordedCycle(t *testing.T) {
	s := newTestServer(t, Config{FanOut: 2}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"no_cycle_run_yet"}`, rec.Body.String())

	s.RecordCycle(orchestrator.Summary{CorrelationID: "xyz", Sources: []orchestrator.SourceOutcome{
		{Kind: "favorite", SourceID: "list-1", PersistedCount: 3},
	}})

	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Contains(t, rec2.Body.String(), `"CorrelationID":"xyz"`)
	require.Contains(t, rec2.Body.String(), `"SourceID":"list-1"`)
}

func TestHandleTriggerCycle_RunsConfiguredSourcesAndRecordsStatus(t *testing.T) {
	fc := platformtest.NewFakeClient()
	fc.SetFavoritePages("list-1", platform.FavoriteMeta{Title: "Favs"}, []platform.Page{
		{HasNext: false, Items: []platform.ItemOrErr{
			{Info: source.VideoInfo{PlatformVideoID: "A", ReleaseTS: time.Unix(100, 0)}},
		}},
	})

	path := filepath.Join(t.TempDir(), "trigger.db")
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	wmStore := watermark.NewStore(db)
	videoStore := video.NewStore(db)

	fav := adapter.NewFavorite(source.Favorite{ListID: "list-1", Path: "/p"}, fc, wmStore)
	srv := New(Config{FanOut: 2}, func() []adapter.VideoSource { return []adapter.VideoSource{fav} }, videoStore)

	req := httptest.NewRequest(http.MethodPost, "/cycles", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"PersistedCount":1`)

	statusRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Contains(t, statusRec.Body.String(), `"Kind":"favorite"`)
}

func TestHandleTriggerCycle_ReturnsConflictWhenLockHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := t.Context()

	holder, err := lock.New(ctx, "vidsync:cycle:default", lock.Config{Addr: mr.Addr(), TTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = holder.Close() })
	ok, err := holder.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	contender, err := lock.New(ctx, "vidsync:cycle:default", lock.Config{Addr: mr.Addr(), TTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = contender.Close() })

	s := newTestServer(t, Config{FanOut: 2}, nil)
	s.SetCycleLock(contender)

	req := httptest.NewRequest(http.MethodPost, "/cycles", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"status":"cycle_already_running"}`, rec.Body.String())
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	s := newTestServer(t, Config{
		FanOut: 2,
		Middleware: middleware.StackConfig{
			AdminToken: "super-secret",
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/status", nil)
	req2.Header.Set("Authorization", "Bearer super-secret")
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)
}
