// SPDX-License-Identifier: MIT

// Package config loads and hot-reloads the sync daemon's configuration: the
// set of sources to refresh, the cycle schedule, and the admin HTTP surface.
package config

import "time"

// FavoriteConfig configures one favorite-list source.
type FavoriteConfig struct {
	ListID string `yaml:"list_id"`
	Path   string `yaml:"path"`
}

// CollectionConfig configures one curated-collection source.
type CollectionConfig struct {
	CollectionID string `yaml:"collection_id"`
	OwnerID      string `yaml:"owner_id"`
	Kind         string `yaml:"kind"` // "season" or "series"
	Path         string `yaml:"path"`
}

// SubmissionConfig configures one creator-uploads source.
type SubmissionConfig struct {
	CreatorID string `yaml:"creator_id"`
	Path      string `yaml:"path"`
}

// WatchLaterConfig configures the singleton watch-later queue source. Path
// is empty when the source is not configured at all.
type WatchLaterConfig struct {
	Path string `yaml:"path"`
}

// SourcesConfig is the full set of configured Source Descriptors.
type SourcesConfig struct {
	Favorites   []FavoriteConfig   `yaml:"favorites"`
	Collections []CollectionConfig `yaml:"collections"`
	Submissions []SubmissionConfig `yaml:"submissions"`
	WatchLater  WatchLaterConfig   `yaml:"watch_later"`
}

// PlatformConfig configures the remote platform's access credentials and
// client tuning.
type PlatformConfig struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"` // requests/sec
	Burst       int           `yaml:"burst"`
}

// ServerConfig configures the admin/health/metrics HTTP surface.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr"`

	// AdminToken, if set, is required as a bearer token on every admin
	// route. Empty disables auth — intended for local/dev runs only.
	AdminToken string `yaml:"admin_token"`

	EnableRateLimit    bool `yaml:"enable_rate_limit"`
	RateLimitGlobalRPS int  `yaml:"rate_limit_rps"`
	RateLimitBurst     int  `yaml:"rate_limit_burst"`
}

// DistributedLockConfig configures the optional Redis-backed cycle lock
// that keeps two daemon replicas from running the same cycle concurrently.
// Unconfigured (Addr == "") means single-replica deployment: no lock is
// acquired at all.
type DistributedLockConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// TelemetryConfig configures OpenTelemetry tracing export. Disabled (the
// zero value) means every span call is a cheap no-op via the global
// noop.TracerProvider; no exporter is ever dialed.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // "grpc" or "http"
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// AppConfig is the full, validated runtime configuration.
type AppConfig struct {
	DataDir string `yaml:"data_dir"`

	FanOutLimit  int           `yaml:"fan_out_limit"`
	PollInterval time.Duration `yaml:"poll_interval"`

	Sources   SourcesConfig         `yaml:"sources"`
	Platform  PlatformConfig        `yaml:"platform"`
	Server    ServerConfig          `yaml:"server"`
	Lock      DistributedLockConfig `yaml:"distributed_lock"`
	Telemetry TelemetryConfig       `yaml:"telemetry"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "console"
}

// Default returns the zero-config defaults applied before file/env overrides.
func Default() AppConfig {
	return AppConfig{
		DataDir:      "./data",
		FanOutLimit:  4,
		PollInterval: 15 * time.Minute,
		Platform: PlatformConfig{
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     10,
		},
		Server: ServerConfig{
			BindAddr:           ":8080",
			EnableRateLimit:    true,
			RateLimitGlobalRPS: 10,
			RateLimitBurst:     20,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}
