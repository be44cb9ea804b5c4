// SPDX-License-Identifier: MIT

// Package api serves the admin HTTP surface: health, readiness, metrics,
// last-cycle status, and a manual cycle trigger.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tidewatch/vidsync/internal/adapter"
	"github.com/tidewatch/vidsync/internal/api/middleware"
	"github.com/tidewatch/vidsync/internal/api/openapi"
	vidlog "github.com/tidewatch/vidsync/internal/log"
	"github.com/tidewatch/vidsync/internal/orchestrator"
	"github.com/tidewatch/vidsync/internal/orchestrator/lock"
	"github.com/tidewatch/vidsync/internal/video"
)

// SourceBuilder produces the current set of configured Source Descriptors,
// called fresh at the start of every cycle so a config reload between
// cycles takes effect without restarting the server.
type SourceBuilder func() []adapter.VideoSource

// Server is the admin HTTP server.
type Server struct {
	router  *chi.Mux
	sources SourceBuilder
	store   *video.Store
	fanOut  int
	logger  zerolog.Logger

	mu          sync.Mutex
	lastSummary *orchestrator.Summary

	spec      *openapi.Document
	cycleLock *lock.CycleLock
}

// Config configures the admin server.
type Config struct {
	Middleware middleware.StackConfig
	FanOut     int
}

// New builds a Server. sources is called on every manual or scheduled
// cycle trigger to get the current configuration's source list.
func New(cfg Config, sources SourceBuilder, store *video.Store) *Server {
	s := &Server{
		router:  middleware.NewRouter(cfg.Middleware),
		sources: sources,
		store:   store,
		fanOut:  cfg.FanOut,
		logger:  vidlog.WithComponent("api"),
	}

	if doc, err := openapi.LoadEmbedded(); err != nil {
		s.logger.Error().Err(err).Str("event", "openapi.load_error").Msg("embedded OpenAPI document failed to load; /openapi.yaml disabled")
	} else {
		s.spec = doc
	}

	s.routes()
	return s
}

// Handler returns the server's http.Handler, for wrapping in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)
	s.router.Get("/status", s.handleStatus)
	s.router.Post("/cycles", s.handleTriggerCycle)
	if s.spec != nil {
		s.router.Get("/openapi.yaml", s.spec.ServeSpec)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleReady reports ready only once at least one cycle has completed, so
// a load balancer doesn't route admin-status traffic at a replica that
// hasn't populated its last-cycle summary yet.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ready := s.lastSummary != nil
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	summary := s.lastSummary
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if summary == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"no_cycle_run_yet"}`))
		return
	}
	if err := encodeJSON(w, summary); err != nil {
		s.logger.Error().Err(err).Str("event", "status.encode_error").Msg("failed to encode status response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleTriggerCycle runs one refresh cycle synchronously and returns its
// summary. Intended for operator-initiated out-of-band refreshes; the
// scheduled ticker in internal/daemon drives the normal cadence. When a
// distributed cycle lock is configured, a trigger that loses the race to a
// concurrently-running scheduled cycle is reported as 409, not run twice.
func (s *Server) handleTriggerCycle(w http.ResponseWriter, r *http.Request) {
	logger := vidlog.FromContext(r.Context())
	started := time.Now()

	ctx := r.Context()
	summary, ran, err := orchestrator.RunCycleLocked(ctx, s.cycleLock, s.sources(), s.store, s.fanOut)
	if err != nil {
		logger.Error().Err(err).Str("event", "cycle.lock_error").Msg("cycle lock unavailable; manual trigger refused")
		http.Error(w, "cycle lock unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ran {
		logger.Warn().Str("event", "cycle.manual_trigger_skipped").Msg("another replica currently holds the cycle lock")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":"cycle_already_running"}`))
		return
	}

	s.mu.Lock()
	s.lastSummary = &summary
	s.mu.Unlock()

	logger.Info().
		Str("event", "cycle.manual_trigger").
		Str("cycle_id", summary.CorrelationID).
		Dur("duration", time.Since(started)).
		Msg("manual cycle trigger completed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := encodeJSON(w, summary); err != nil {
		logger.Error().Err(err).Str("event", "cycle.encode_error").Msg("failed to encode cycle response")
	}
}

// RecordCycle lets the daemon's scheduled ticker publish its own cycle
// summaries into /status, so a scheduled run is visible the same way a
// manual trigger is.
func (s *Server) RecordCycle(summary orchestrator.Summary) {
	s.mu.Lock()
	s.lastSummary = &summary
	s.mu.Unlock()
}

// FanOut is used by the daemon's scheduler to drive RunCycle with the same
// concurrency limit the admin server was configured with.
func (s *Server) FanOut() int {
	return s.fanOut
}

// SetCycleLock attaches the distributed cycle lock a manual trigger must
// coordinate with so an operator-initiated refresh never runs concurrently
// with another replica's scheduled cycle. Passing nil (the default) disables
// coordination, matching an unconfigured single-replica deployment.
func (s *Server) SetCycleLock(cl *lock.CycleLock) {
	s.cycleLock = cl
}
