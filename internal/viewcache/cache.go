// Package viewcache stores rendered view payloads in Redis keyed by route
// path, and drops them when the underlying data changes.
package viewcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is safe to use as a nil pointer: lookups miss and writes are dropped.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New returns a cache over client. A nil client yields a nil cache.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{redis: client, ttl: ttl}
}

func (c *Cache) key(path string) string {
	return fmt.Sprintf("carepulse:view:%s", path)
}

// Get returns the cached payload for path.
func (c *Cache) Get(ctx context.Context, path string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	data, err := c.redis.Get(ctx, c.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("viewcache: get %s: %w", path, err)
	}
	return data, true, nil
}

// Set stores payload for path with the configured TTL.
func (c *Cache) Set(ctx context.Context, path string, payload []byte) error {
	if c == nil {
		return nil
	}
	if err := c.redis.Set(ctx, c.key(path), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("viewcache: set %s: %w", path, err)
	}
	return nil
}

// Invalidate deletes the cached payload so the next read rebuilds it.
func (c *Cache) Invalidate(ctx context.Context, path string) error {
	if c == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(path)).Err(); err != nil {
		return fmt.Errorf("viewcache: invalidate %s: %w", path, err)
	}
	return nil
}
