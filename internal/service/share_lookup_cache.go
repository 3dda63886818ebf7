package service

import (
	"context"
	"sync"
	"time"
)

// ShareLookupCache remembers share codes that resolved to "not found"
// so that repeated hits on a dead or guessed code answer without
// touching storage. Only negative results are cached; live links always
// go to the database because their state machine mutates on read.
type ShareLookupCache interface {
	IsDead(ctx context.Context, code string) (bool, error)
	MarkDead(ctx context.Context, code string, ttl time.Duration) error
}

type NoopShareLookupCache struct{}

func NewNoopShareLookupCache() *NoopShareLookupCache { return &NoopShareLookupCache{} }

func (NoopShareLookupCache) IsDead(context.Context, string) (bool, error) { return false, nil }

func (NoopShareLookupCache) MarkDead(context.Context, string, time.Duration) error { return nil }

type InMemoryShareLookupCache struct {
	mu    sync.RWMutex
	store map[string]time.Time
}

func NewInMemoryShareLookupCache() *InMemoryShareLookupCache {
	return &InMemoryShareLookupCache{store: make(map[string]time.Time)}
}

func (c *InMemoryShareLookupCache) IsDead(_ context.Context, code string) (bool, error) {
	now := time.Now().UTC()
	c.mu.RLock()
	expiresAt, ok := c.store[code]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		c.mu.Lock()
		if exp, ok := c.store[code]; ok && now.After(exp) {
			delete(c.store, code)
		}
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *InMemoryShareLookupCache) MarkDead(_ context.Context, code string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.store[code] = time.Now().UTC().Add(ttl)
	c.mu.Unlock()
	return nil
}
