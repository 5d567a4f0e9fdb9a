// Package cache provides a small JSON-over-Redis cache used for the
// availability listings. A nil *Cache is a valid no-op cache, so callers
// never branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with a fixed TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects to Redis and verifies the connection. An empty Addr yields
// a nil no-op cache.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetJSON reads key into dst. The boolean reports a cache hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// Stale or corrupt payloads fall through to the source of truth.
		return false, nil
	}
	return true, nil
}

// SetJSON stores v under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// InvalidatePrefix removes every key under the prefix. Listings are
// invalidated this way after any item mutation.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if c == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
