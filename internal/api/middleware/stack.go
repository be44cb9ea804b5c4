// SPDX-License-Identifier: MIT

// Package middleware assembles the admin HTTP server's ingress stack, so
// the cross-cutting concerns (recovery, request ids, logging, rate limits,
// auth) apply uniformly regardless of which handler serves a request.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/tidewatch/vidsync/internal/auth"
	vidlog "github.com/tidewatch/vidsync/internal/log"
)

// StackConfig configures the canonical ingress middleware stack.
type StackConfig struct {
	EnableRateLimit    bool
	RateLimitGlobalRPS int
	RateLimitBurst     int

	// AdminToken, if non-empty, requires every request to present a bearer
	// token matching it via internal/auth. Empty disables auth entirely —
	// intended for local/dev runs only.
	AdminToken string
}

// NewRouter constructs a chi router with the canonical stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r, innermost-last.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(vidlog.Middleware())

	if cfg.EnableRateLimit {
		r.Use(RateLimit(cfg.RateLimitGlobalRPS, cfg.RateLimitBurst))
	}
	if cfg.AdminToken != "" {
		r.Use(RequireAuth(cfg.AdminToken))
	}
}

// RateLimit applies a sliding-window request limit keyed by client IP.
func RateLimit(requestsPerSecond, burst int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return httprate.Limit(
		burst,
		time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}

// RequireAuth rejects any request that doesn't present a valid bearer
// token, via internal/auth's constant-time comparison.
func RequireAuth(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.AuthorizeRequest(r, expected) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="vidsync"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
