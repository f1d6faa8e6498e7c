package dns

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "hvn:dns:"

// RedisCache stores serialized resolutions with the record's own TTL, so the
// cache can never outlive the answer it holds. Redis being down degrades to
// uncached reads, never to errors.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Resolution, bool) {
	raw, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "dns cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var res Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.WarnContext(ctx, "dns cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res *Resolution, ttl time.Duration) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cachePrefix+key, raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "dns cache write failed", "key", key, "error", err)
	}
}
