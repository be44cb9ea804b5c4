// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
data_dir: /var/lib/vidsync
fan_out_limit: 8
poll_interval: 5m
sources:
  favorites:
    - list_id: list-1
      path: /downloads/list-1
  submissions:
    - creator_id: creator-1
      path: /downloads/creator-1
  watch_later:
    path: /downloads/watch-later
platform:
  base_url: https://platform.example/api
  access_token: tok-abc
  timeout: 10s
  rate_limit: 3
  burst: 6
server:
  bind_addr: ":9090"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoader_Load_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	loader := NewLoaderWithEnv(path, func(string) (string, bool) { return "", false })

	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/vidsync", cfg.DataDir)
	require.Equal(t, 8, cfg.FanOutLimit)
	require.Equal(t, 5*time.Minute, cfg.PollInterval)
	require.Len(t, cfg.Sources.Favorites, 1)
	require.Equal(t, "list-1", cfg.Sources.Favorites[0].ListID)
	require.Equal(t, "/downloads/watch-later", cfg.Sources.WatchLater.Path)
	require.Equal(t, "https://platform.example/api", cfg.Platform.BaseURL)
}

func TestLoader_Load_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	env := map[string]string{
		"VIDSYNC_PLATFORM_ACCESS_TOKEN": "tok-from-env",
		"VIDSYNC_FAN_OUT_LIMIT":         "2",
	}
	loader := NewLoaderWithEnv(path, func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-from-env", cfg.Platform.AccessToken)
	require.Equal(t, 2, cfg.FanOutLimit)
	require.Equal(t, "/var/lib/vidsync", cfg.DataDir, "unset env keys must not clobber the file value")
}

func TestLoader_Load_MissingFileFallsBackToDefaults(t *testing.T) {
	loader := NewLoaderWithEnv(filepath.Join(t.TempDir(), "does-not-exist.yaml"), func(string) (string, bool) { return "", false })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, Default().FanOutLimit, cfg.FanOutLimit)
}

func TestLoader_Load_EmptyPathIsEnvOnly(t *testing.T) {
	env := map[string]string{"VIDSYNC_BIND_ADDR": ":7777"}
	loader := NewLoaderWithEnv("", func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.Server.BindAddr)
}
