package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"next-watch/internal/metrics"
)

// cache is a JSON read-through cache on Redis. A nil client turns every
// operation into a miss or a no-op.
type cache struct {
	name  string
	redis *redis.Client
}

func newCache(name string, rdb *redis.Client) cache {
	return cache{name: name, redis: rdb}
}

// get decodes the value at key into dst and reports whether it was found.
func (c cache) get(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}

	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return false
	case err != nil:
		slog.Warn("cache read failed", "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues(c.name, "error").Inc()
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("discarding undecodable cache entry", "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues(c.name, "error").Inc()
		return false
	}

	slog.Debug("cache hit", "key", key)
	metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return true
}

func (c cache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Error("failed to set cache", "key", key, "error", err)
	}
}

// invalidate deletes every key matching the given patterns.
func (c cache) invalidate(ctx context.Context, patterns ...string) {
	if c.redis == nil {
		return
	}
	for _, pattern := range patterns {
		iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
				slog.Error("failed to delete cache key", "key", iter.Val(), "error", err)
			}
		}
		if err := iter.Err(); err != nil {
			slog.Error("failed to scan cache keys", "pattern", pattern, "error", err)
		}
	}
	slog.Debug("Redis cache invalidated", "patterns", patterns)
}
