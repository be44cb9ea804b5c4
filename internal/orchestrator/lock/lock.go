// SPDX-License-Identifier: MIT

// Package lock provides a Redis-backed distributed mutex that keeps two
// daemon replicas from running a refresh cycle for the same source set
// concurrently. Only one replica needs to win the lock per cycle tick; the
// others skip that tick rather than blocking on it.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotHeld is returned by Release/Refresh when the caller no longer holds
// the lock (it expired, or was never acquired).
var ErrNotHeld = errors.New("lock: not held")

// Config holds the Redis connection configuration for the cycle lock.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string
	DB       int

	// TTL is how long a held lock survives without being refreshed; it
	// must comfortably exceed the longest expected cycle duration so a
	// slow cycle doesn't lose its lock mid-run.
	TTL time.Duration
}

func (c Config) normalize() Config {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	return c
}

// CycleLock is a single named SETNX-based mutex backed by Redis. A process
// may share one CycleLock between its scheduled ticker and an operator-
// triggered manual refresh, so token access is mutex-guarded: only one of
// the two ever wins TryAcquire, the other observes ok == false.
type CycleLock struct {
	client *redis.Client
	logger zerolog.Logger
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string // set only while held, identifies this holder for safe release
}

// New connects to Redis and returns a CycleLock scoped to key (e.g.
// "vidsync:cycle:<account-id>"). The connection is verified with a ping
// before returning, so callers learn about a misconfigured Redis
// immediately rather than on the first Acquire.
func New(ctx context.Context, key string, cfg Config, logger zerolog.Logger) (*CycleLock, error) {
	cfg = cfg.normalize()
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cycle lock: redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Str("key", key).Msg("connected to Redis cycle lock backend")

	return &CycleLock{
		client: client,
		logger: logger,
		key:    key,
		ttl:    cfg.TTL,
	}, nil
}

// releaseScript deletes the key only if it still holds this holder's token,
// so a replica can never release a lock another replica has since acquired
// (e.g. after this replica's TTL already expired).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// refreshScript extends the TTL only if this holder's token is still current.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// TryAcquire attempts a non-blocking acquisition. ok is false if another
// replica currently holds the lock; this is the expected, non-error outcome
// for every replica but the cycle's winner.
func (l *CycleLock) TryAcquire(ctx context.Context) (ok bool, err error) {
	token := uuid.NewString()
	set, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cycle lock: acquire %q: %w", l.key, err)
	}
	if !set {
		return false, nil
	}
	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	l.logger.Debug().Str("key", l.key).Msg("cycle lock acquired")
	return true, nil
}

// Refresh extends the held lock's TTL, for a cycle that runs long enough
// that the original TTL might otherwise lapse before Release.
func (l *CycleLock) Refresh(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.mu.Unlock()
	if token == "" {
		return ErrNotHeld
	}

	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("cycle lock: refresh %q: %w", l.key, err)
	}
	if n == 0 {
		l.mu.Lock()
		if l.token == token {
			l.token = ""
		}
		l.mu.Unlock()
		return ErrNotHeld
	}
	return nil
}

// Release gives up the lock, but only if this holder still owns it.
func (l *CycleLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return ErrNotHeld
	}

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("cycle lock: release %q: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	l.logger.Debug().Str("key", l.key).Msg("cycle lock released")
	return nil
}

// Close closes the underlying Redis connection.
func (l *CycleLock) Close() error {
	return l.client.Close()
}
