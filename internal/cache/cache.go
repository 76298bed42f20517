// Package cache provides the TTL cache over analysis results. The external
// engine re-parses the whole tree on every call, so repeated tool invocations
// against an unchanged tree must be served from memory. Expiry is lazy,
// checked at read time; nothing sweeps in the background.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fingerprint derives a cache key from the request-affecting fields.
// The result limit must never be part of the key; it only shapes
// post-cache truncation.
func Fingerprint(parts ...string) string {
	data := ""
	for _, p := range parts {
		data += p + ":"
	}
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// Info describes how a value was produced, for response metadata.
type Info struct {
	Hit bool
	Age time.Duration
	Key string
}

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// Cache is a lock-protected TTL map with per-key compute de-duplication.
// Concurrent callers of the same key share one in-flight engine invocation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger

	// now is swappable for expiry tests
	now func() time.Time
}

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// GetOrCompute returns the live cached value for key, or invokes compute and
// stores its result. Errors from compute are returned to every waiting caller
// and never cached. The compute call carries no timeout of its own;
// cancellation comes from ctx.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (any, error)) (any, Info, error) {
	if value, info, ok := c.lookup(key); ok {
		return value, info, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		// A completed flight may have stored the value while this caller
		// was waiting for its turn.
		if value, _, ok := c.lookup(key); ok {
			return value, nil
		}

		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})
	if err != nil {
		return nil, Info{Key: key}, err
	}

	return value, Info{Hit: false, Key: key}, nil
}

// lookup returns the value for key if present and not expired.
func (c *Cache) lookup(key string) (any, Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, Info{}, false
	}
	now := c.now()
	if now.After(e.expiresAt) {
		return nil, Info{}, false
	}
	return e.value, Info{Hit: true, Age: now.Sub(e.createdAt), Key: key}, true
}

func (c *Cache) store(key string, value any) {
	now := c.now()
	c.mu.Lock()
	c.entries[key] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
}

// InvalidateAll drops every entry unconditionally. A read racing with the
// invalidation either sees the old value or recomputes; both are valid.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.logger.Debug("analysis cache invalidated", "entries", n)
	return n
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
