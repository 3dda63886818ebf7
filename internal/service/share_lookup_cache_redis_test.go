package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCacheForTest(t *testing.T) (*miniredis.Miniredis, *RedisShareLookupCache) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, NewRedisShareLookupCache(client, "")
}

func TestRedisShareLookupCacheRoundTrip(t *testing.T) {
	server, cache := newRedisCacheForTest(t)
	ctx := context.Background()

	if dead, err := cache.IsDead(ctx, "s_x"); err != nil || dead {
		t.Fatalf("unknown code: dead=%v err=%v", dead, err)
	}
	if err := cache.MarkDead(ctx, "s_x", time.Minute); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	if dead, err := cache.IsDead(ctx, "s_x"); err != nil || !dead {
		t.Fatalf("marked code: dead=%v err=%v", dead, err)
	}
	if !server.Exists("share_lookup_dead:s_x") {
		t.Fatal("expected prefixed key in redis")
	}
}

func TestRedisShareLookupCacheTTL(t *testing.T) {
	server, cache := newRedisCacheForTest(t)
	ctx := context.Background()

	if err := cache.MarkDead(ctx, "s_x", time.Minute); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	server.FastForward(2 * time.Minute)
	if dead, err := cache.IsDead(ctx, "s_x"); err != nil || dead {
		t.Fatalf("expired entry: dead=%v err=%v", dead, err)
	}
}

func TestRedisShareLookupCacheNilClient(t *testing.T) {
	cache := NewRedisShareLookupCache(nil, "")
	ctx := context.Background()

	if err := cache.MarkDead(ctx, "s_x", time.Minute); err != nil {
		t.Fatalf("mark dead with nil client: %v", err)
	}
	if dead, err := cache.IsDead(ctx, "s_x"); err != nil || dead {
		t.Fatalf("nil client must report alive: dead=%v err=%v", dead, err)
	}
}
