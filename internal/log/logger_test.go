// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "vidsync-test", Version: "0.0.0-test"})

	L().Info().Str("event", "unit.test").Msg("hello")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimRight(buf.Bytes(), "\n"), &decoded))
	require.Equal(t, "vidsync-test", decoded["service"])
	require.Equal(t, "unit.test", decoded["event"])
	require.Equal(t, "hello", decoded["message"])
}

func TestConfigure_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "warn"})

	L().Info().Msg("should be dropped")
	require.Empty(t, buf.String())

	L().Warn().Msg("should appear")
	require.True(t, strings.Contains(buf.String(), "should appear"))
}

func TestWithComponentAndSource(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	l := WithComponentAndSource("adapter", "favorite", "123")
	l.Info().Msg("refresh")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimRight(buf.Bytes(), "\n"), &decoded))
	require.Equal(t, "adapter", decoded["component"])
	require.Equal(t, "favorite", decoded["source_kind"])
	require.Equal(t, "123", decoded["source_id"])
}
