package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisShareLookupCache shares the dead-code set across instances when
// the service runs behind a load balancer.
type RedisShareLookupCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisShareLookupCache(client redis.UniversalClient, prefix string) *RedisShareLookupCache {
	if prefix == "" {
		prefix = "share_lookup_dead"
	}
	return &RedisShareLookupCache{client: client, prefix: prefix}
}

func (c *RedisShareLookupCache) IsDead(ctx context.Context, code string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	_, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisShareLookupCache) MarkDead(ctx context.Context, code string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(code), "1", ttl).Err()
}

func (c *RedisShareLookupCache) key(code string) string {
	return fmt.Sprintf("%s:%s", c.prefix, code)
}
