package cache

import (
	"sync"
	"time"
)

// UserCache is a small in-process TTL cache with per-user buckets, used for
// dashboard summaries. A ledger mutation invalidates the owner's whole
// bucket so dependent views re-read on the next request.
type UserCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]map[string]entry // userID -> key -> entry
}

type entry struct {
	val any
	exp time.Time
}

func New(ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &UserCache{
		ttl: ttl,
		m:   make(map[string]map[string]entry),
	}
}

func (c *UserCache) Get(userID, key string) (any, bool) {
	now := time.Now()
	c.mu.RLock()
	e, ok := c.m[userID][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		if bucket, ok := c.m[userID]; ok {
			delete(bucket, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *UserCache) Set(userID, key string, val any) {
	c.mu.Lock()
	bucket, ok := c.m[userID]
	if !ok {
		bucket = make(map[string]entry)
		c.m[userID] = bucket
	}
	bucket[key] = entry{val: val, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops everything cached for one user.
func (c *UserCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.m, userID)
	c.mu.Unlock()
}

func (c *UserCache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]map[string]entry)
	c.mu.Unlock()
}
