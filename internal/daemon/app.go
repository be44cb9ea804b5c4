// SPDX-License-Identifier: MIT

// Package daemon owns the long-lived runtime lifecycle: the config watcher,
// SIGHUP-triggered reload, the scheduled sync-cycle ticker, and the admin
// HTTP server's start/stop.
package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tidewatch/vidsync/internal/api"
	"github.com/tidewatch/vidsync/internal/config"
	vidlog "github.com/tidewatch/vidsync/internal/log"
	"github.com/tidewatch/vidsync/internal/orchestrator"
	"github.com/tidewatch/vidsync/internal/orchestrator/lock"
	"github.com/tidewatch/vidsync/internal/video"
	"github.com/rs/zerolog"
)

// ErrMissingHTTPServer is returned when an App is built without an HTTP
// server to own.
var ErrMissingHTTPServer = errors.New("daemon: http server is required")

// App supervises the daemon's background subsystems and the admin server,
// all wired to stop cleanly when its Run context is cancelled.
type App struct {
	logger     zerolog.Logger
	cfgHolder  *config.Holder
	apiServer  *api.Server
	httpServer *http.Server
	sources    api.SourceBuilder
	store      *video.Store
	cycleLock  *lock.CycleLock

	reloadSignal os.Signal
}

// New builds an App. cfgHolder may be nil for an env/defaults-only
// configuration that never watches a file or reloads.
func New(cfgHolder *config.Holder, apiServer *api.Server, httpServer *http.Server, sources api.SourceBuilder, store *video.Store) *App {
	return &App{
		logger:       vidlog.WithComponent("daemon"),
		cfgHolder:    cfgHolder,
		apiServer:    apiServer,
		httpServer:   httpServer,
		sources:      sources,
		store:        store,
		reloadSignal: syscall.SIGHUP,
	}
}

// SetCycleLock attaches the distributed cycle lock the scheduled ticker must
// coordinate with in a multi-replica deployment. Passing nil (the default)
// disables coordination: every tick runs the cycle unconditionally.
func (a *App) SetCycleLock(cl *lock.CycleLock) {
	a.cycleLock = cl
}

// Run starts every owned subsystem and blocks until ctx is cancelled or a
// subsystem fails fatally. A cancelled ctx always triggers a graceful HTTP
// shutdown before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.httpServer == nil {
		return ErrMissingHTTPServer
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		g.Go(func() error { return a.runReloadSignalHandler(ctx) })
	}

	g.Go(func() error { return a.runSyncScheduler(ctx) })

	g.Go(func() error {
		err := a.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runReloadSignalHandler reloads the configuration whenever the process
// receives SIGHUP, for operators who prefer an explicit trigger over
// waiting on the file watcher's debounce.
func (a *App) runReloadSignalHandler(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, a.reloadSignal)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			a.logger.Info().Str("event", "config.reload_signal").Str("signal", a.reloadSignal.String()).Msg("received reload signal")

			reloadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			err := a.cfgHolder.Reload(reloadCtx)
			cancel()
			if err != nil {
				a.logger.Warn().Err(err).Str("event", "config.reload_failed").Msg("config reload failed")
			}
		}
	}
}

// runSyncScheduler drives the recurring refresh cycle on the configured
// poll interval, re-checking the interval after every tick so a config
// reload takes effect without restarting the scheduler.
func (a *App) runSyncScheduler(ctx context.Context) error {
	interval := a.currentPollInterval()
	if interval <= 0 {
		interval = config.Default().PollInterval
	}

	a.logger.Info().Dur("interval", interval).Msg("starting sync-cycle scheduler")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if next := a.currentPollInterval(); next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
				a.logger.Info().Dur("new_interval", interval).Msg("sync-cycle interval updated")
			}

			summary, ran, err := orchestrator.RunCycleLocked(ctx, a.cycleLock, a.sources(), a.store, a.apiServer.FanOut())
			if err != nil {
				a.logger.Warn().Err(err).Str("event", "cycle.lock_error").Msg("cycle lock unavailable; skipping this tick")
				continue
			}
			if !ran {
				a.logger.Info().Str("event", "cycle.skipped_lock_held").Msg("another replica currently holds the cycle lock; skipping this tick")
				continue
			}
			a.apiServer.RecordCycle(summary)
		}
	}
}

func (a *App) currentPollInterval() time.Duration {
	if a.cfgHolder == nil {
		return config.Default().PollInterval
	}
	return a.cfgHolder.Snapshot().App.PollInterval
}
