// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidewatch/vidsync/internal/adapter"
	"github.com/tidewatch/vidsync/internal/api"
	"github.com/tidewatch/vidsync/internal/config"
	"github.com/tidewatch/vidsync/internal/persistence/sqlite"
	"github.com/tidewatch/vidsync/internal/video"
)

// newTestApp wires an App whose *http.Server binds an OS-assigned loopback
// port via Run's own ListenAndServe — these tests never dial it over the
// network (they hit apiServer.Handler() in-process), so only an available,
// permission-free bind address matters.
func newTestApp(t *testing.T) (*App, *http.Server) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "daemon.db")
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	store := video.NewStore(db)

	sources := func() []adapter.VideoSource { return nil }

	apiSrv := api.New(api.Config{FanOut: 2}, sources, store)

	httpSrv := &http.Server{Addr: "127.0.0.1:0", Handler: apiSrv.Handler()}
	t.Cleanup(func() { _ = httpSrv.Close() })

	cfg := config.Default()
	cfg.PollInterval = 40 * time.Millisecond
	holder := config.NewHolder(cfg, config.NewLoader(""), "")

	return New(holder, apiSrv, httpSrv, sources, store), httpSrv
}

func TestApp_RunStopsCleanlyOnCancel(t *testing.T) {
	app, _ := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestApp_SchedulerRecordsCycleSummaries(t *testing.T) {
	app, _ := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return app.apiServer.FanOut() == 2
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		app.apiServer.Handler().ServeHTTP(rec, req)
		return rec.Code == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
