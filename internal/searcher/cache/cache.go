// Package cache provides an optional Redis-backed query-result cache. Keys
// are derived from the canonical form of the parsed query, so syntactic
// variants of the same expression share one entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	pkgredis "github.com/mkravchenko/bisearch/pkg/redis"
)

const keyPrefix = "boolsearch:"

// QueryCache caches evaluated hit lists in Redis with a TTL.
type QueryCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a QueryCache over an established Redis client.
func New(client *pkgredis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached hit list for the canonical query, if present.
func (c *QueryCache) Get(ctx context.Context, canonical string) ([]uint32, bool) {
	key := c.buildKey(canonical)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var hits []uint32
	if err := json.Unmarshal([]byte(data), &hits); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return hits, true
}

// Set stores a hit list for the canonical query.
func (c *QueryCache) Set(ctx context.Context, canonical string, hits []uint32) {
	key := c.buildKey(canonical)
	data, err := json.Marshal(hits)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached hit list or computes and stores it. The
// second result reports whether the value came from the cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	canonical string,
	computeFn func() ([]uint32, error),
) ([]uint32, bool, error) {
	if hits, ok := c.Get(ctx, canonical); ok {
		return hits, true, nil
	}
	key := c.buildKey(canonical)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		hits, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, canonical, hits)
		return hits, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]uint32), false, nil
}

// Invalidate removes every cached query result, e.g. after a rebuild.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns lifetime hit and miss counters.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(canonical string) string {
	hash := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
