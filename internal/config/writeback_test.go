// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteEffective_ProducesLoadableYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effective.yaml")
	cfg := validConfig()

	require.NoError(t, WriteEffective(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var roundTripped AppConfig
	require.NoError(t, yaml.Unmarshal(data, &roundTripped))
	require.Equal(t, cfg.Platform.BaseURL, roundTripped.Platform.BaseURL)
	require.Equal(t, cfg.Sources.Favorites[0].ListID, roundTripped.Sources.Favorites[0].ListID)
}

func TestWriteEffective_OverwritesExistingFileAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effective.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stale: true\n"), 0o644))

	require.NoError(t, WriteEffective(path, validConfig()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "stale")
}
