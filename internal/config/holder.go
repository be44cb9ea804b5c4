// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	vidlog "github.com/tidewatch/vidsync/internal/log"
)

// Holder holds configuration with atomic reloading: readers always see a
// complete, validated Snapshot, never a config torn mid-update by a
// concurrent reload.
type Holder struct {
	reloadOpMu sync.Mutex
	epoch      atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]
	loader     *Loader

	configPath string
	configDir  string
	configFile string
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- *Snapshot
}

// NewHolder builds a Holder already populated with initial.
func NewHolder(initial AppConfig, loader *Loader, configPath string) *Holder {
	h := &Holder{
		loader:     loader,
		configPath: configPath,
		logger:     vidlog.WithComponent("config"),
	}
	h.Swap(&Snapshot{App: initial})
	return h
}

// Snapshot returns the currently effective configuration.
func (h *Holder) Snapshot() Snapshot {
	snap := h.snapshot.Load()
	if snap == nil {
		return Snapshot{}
	}
	return *snap
}

// Swap atomically installs next, stamping it with the next epoch.
func (h *Holder) Swap(next *Snapshot) (prev *Snapshot) {
	if next == nil {
		return h.snapshot.Load()
	}
	next.Epoch = h.epoch.Add(1)
	return h.snapshot.Swap(next)
}

// Reload re-reads the configured file, validates it, and — only if
// validation succeeds — atomically replaces the current snapshot. A failed
// reload leaves the previously-loaded configuration fully in effect.
func (h *Holder) Reload(_ context.Context) error {
	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("config: load: %w", err)
	}

	if err := Validate(newCfg); err != nil {
		h.logger.Error().Err(err).Str("event", "config.validation_failed").Msg("new configuration failed validation")
		return fmt.Errorf("config: validate: %w", err)
	}

	next := &Snapshot{App: newCfg}
	h.Swap(next)
	h.notifyListeners(next)

	h.logger.Info().Str("event", "config.reload_success").Uint64("epoch", next.Epoch).Msg("configuration reloaded")
	return nil
}

// StartWatcher watches the config file's directory for changes (so atomic
// replace-via-rename writes are caught) and debounce-triggers Reload. A
// no-op if configPath is empty (env/defaults-only configuration).
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("no config file configured; watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	h.watcher = watcher
	h.configDir = filepath.Dir(h.configPath)
	h.configFile = filepath.Base(h.configPath)

	if err := watcher.Add(h.configDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("config: watch dir %q: %w", h.configDir, err)
	}

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.configPath).Msg("watching config file for changes")
	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	const debounce = 500 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = h.watcher.Close()
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return

		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != h.configFile {
				continue
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop closes the file watcher, if one is running.
func (h *Holder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
}

// RegisterSnapshotListener registers ch to receive every snapshot installed
// by a successful Reload from this point on. Sends are non-blocking: a full
// channel drops that notification rather than stalling the reloader.
func (h *Holder) RegisterSnapshotListener(ch chan<- *Snapshot) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(snap *Snapshot) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- snap:
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("skipped notifying snapshot listener (channel full)")
		}
	}
}
