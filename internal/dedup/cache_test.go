// SPDX-License-Identifier: MIT

package dedup

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tidewatch/vidsync/internal/source"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dedup")
	c, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSeen_UnknownIdentityIsUnseen(t *testing.T) {
	c := newTestCache(t)
	require.False(t, c.Seen(source.KindFavorite, "list-1", "A"))
}

func TestMarkSeen_ThenSeenReturnsTrue(t *testing.T) {
	c := newTestCache(t)
	c.MarkSeen(source.KindFavorite, "list-1", "A")
	require.True(t, c.Seen(source.KindFavorite, "list-1", "A"))
}

func TestSeen_DistinguishesSourceAndKind(t *testing.T) {
	c := newTestCache(t)
	c.MarkSeen(source.KindFavorite, "list-1", "A")

	require.False(t, c.Seen(source.KindFavorite, "list-2", "A"), "different source id must not collide")
	require.False(t, c.Seen(source.KindCollection, "list-1", "A"), "different source kind must not collide")
}
