// SPDX-License-Identifier: MIT

// Package dedup provides a Badger-backed identity cache consulted before a
// Video Record insert. It is purely an optimization: the database's own
// unique index on (source_kind, source_id, platform_video_id) remains the
// correctness mechanism, so a false negative here (a key this cache has
// forgotten or never seen) just costs one redundant, still-safe
// INSERT OR IGNORE — it can never cause a missed duplicate to be persisted.
package dedup

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tidewatch/vidsync/internal/source"
)

// Cache wraps an embedded Badger instance keyed by video identity.
type Cache struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (creating if necessary) a Badger database at path.
func Open(path string, logger zerolog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("dedup: open %q: %w", path, err)
	}
	return &Cache{db: db, logger: logger}, nil
}

// Close releases the underlying Badger handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func identityKey(kind source.Kind, sourceID, platformVideoID string) []byte {
	return []byte(string(kind) + ":" + sourceID + ":" + platformVideoID)
}

// Seen reports whether this identity has already been recorded as
// persisted. A false result does not guarantee the identity is actually
// new — callers must still rely on the database's unique index.
func (c *Cache) Seen(kind source.Kind, sourceID, platformVideoID string) bool {
	key := identityKey(kind, sourceID, platformVideoID)
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			c.logger.Warn().Err(err).Msg("dedup cache lookup failed; treating as unseen")
		}
		return false
	}
	return true
}

// MarkSeen records an identity as persisted, for future Seen checks to
// short-circuit on. Called after a successful Insert regardless of whether
// the row was freshly inserted or already existed.
func (c *Cache) MarkSeen(kind source.Kind, sourceID, platformVideoID string) {
	key := identityKey(kind, sourceID, platformVideoID)
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, nil)
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("dedup cache write failed; next cycle falls back to the database index")
	}
}
