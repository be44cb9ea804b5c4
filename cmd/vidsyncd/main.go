// SPDX-License-Identifier: MIT

// Command vidsyncd runs the incremental video-sync daemon: it loads
// configuration, opens the persistence layer, wires the platform client and
// configured sources, and serves the admin HTTP surface until signalled to
// stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/tidewatch/vidsync/internal/api"
	"github.com/tidewatch/vidsync/internal/api/middleware"
	"github.com/tidewatch/vidsync/internal/config"
	"github.com/tidewatch/vidsync/internal/daemon"
	"github.com/tidewatch/vidsync/internal/dedup"
	vidlog "github.com/tidewatch/vidsync/internal/log"
	"github.com/tidewatch/vidsync/internal/orchestrator/lock"
	"github.com/tidewatch/vidsync/internal/persistence/sqlite"
	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/telemetry"
	"github.com/tidewatch/vidsync/internal/video"
	"github.com/tidewatch/vidsync/internal/watermark"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidsyncd %s (commit %s)\n", version, commit)
		return
	}

	vidlog.Configure(vidlog.Config{Level: "info", Service: "vidsyncd", Version: version})
	logger := vidlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	loader := config.NewLoader(effectiveConfigPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "config.validation_failed").Msg("configuration failed validation")
	}

	vidlog.Configure(vidlog.Config{Level: cfg.LogLevel, Service: "vidsyncd", Version: version, Console: cfg.LogFormat == "console"})
	logger = vidlog.WithComponent("main")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "vidsyncd",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialize telemetry provider")
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("event", "data_dir.create_failed").Str("path", cfg.DataDir).Msg("failed to create data directory")
	}

	dbPath := filepath.Join(cfg.DataDir, "vidsync.db")
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Str("event", "db.open_failed").Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()
	if err := sqlite.Migrate(db); err != nil {
		logger.Fatal().Err(err).Str("event", "db.migrate_failed").Msg("failed to migrate database")
	}

	videoStore := video.NewStore(db)
	wmStore := watermark.NewStore(db)

	cachePath := filepath.Join(cfg.DataDir, "dedup-cache")
	if dedupCache, err := dedup.Open(cachePath, vidlog.WithComponent("dedup")); err != nil {
		logger.Warn().Err(err).Str("event", "dedup.open_failed").Msg("dedup cache unavailable; every insert falls through to the unique index")
	} else {
		videoStore.SetDedupCache(dedupCache)
		defer func() { _ = dedupCache.Close() }()
	}

	client, err := platform.NewHTTPClient(platform.HTTPOptions{
		BaseURL:     cfg.Platform.BaseURL,
		AccessToken: cfg.Platform.AccessToken,
		Timeout:     cfg.Platform.Timeout,
		RateLimit:   rate.Limit(cfg.Platform.RateLimit),
		Burst:       cfg.Platform.Burst,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "platform.client_init_failed").Msg("failed to build platform client")
	}

	holder := config.NewHolder(cfg, loader, effectiveConfigPath)
	sources := daemon.SourceBuilderFor(holder, client, wmStore)

	var cycleLock *lock.CycleLock
	if cfg.Lock.Addr != "" {
		cycleLock, err = lock.New(ctx, "vidsync:cycle:default", lock.Config{
			Addr:     cfg.Lock.Addr,
			Password: cfg.Lock.Password,
			DB:       cfg.Lock.DB,
			TTL:      cfg.Lock.TTL,
		}, vidlog.WithComponent("cycle_lock"))
		if err != nil {
			logger.Warn().Err(err).Str("event", "lock.connect_failed").Msg("distributed cycle lock unavailable; proceeding as single-replica")
		} else {
			defer func() { _ = cycleLock.Close() }()
		}
	}

	apiSrv := api.New(api.Config{
		FanOut: cfg.FanOutLimit,
		Middleware: middleware.StackConfig{
			EnableRateLimit:    cfg.Server.EnableRateLimit,
			RateLimitGlobalRPS: cfg.Server.RateLimitGlobalRPS,
			RateLimitBurst:     cfg.Server.RateLimitBurst,
			AdminToken:         cfg.Server.AdminToken,
		},
	}, sources, videoStore)
	apiSrv.SetCycleLock(cycleLock)

	httpSrv := &http.Server{
		Addr:              cfg.Server.BindAddr,
		Handler:           apiSrv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	app := daemon.New(holder, apiSrv, httpSrv, sources, videoStore)
	app.SetCycleLock(cycleLock)

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("addr", cfg.Server.BindAddr).
		Dur("poll_interval", cfg.PollInterval).
		Int("fan_out_limit", cfg.FanOutLimit).
		Msg("starting vidsyncd")

	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.exited_with_error").Msg("vidsyncd stopped")
	}
}
