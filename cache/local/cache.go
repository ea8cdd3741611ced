package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// item is one key of any shape. Only the field matching its shape is set.
type item struct {
	str      string
	hash     map[string]string
	list     []string
	expireAt time.Time // zero means no expiry
}

func (it *item) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// LocalCache is an in-process cache implementing the Cache interface.
// Every operation, including the compound ones, runs under one lock so a
// reader never sees a half-replaced snapshot hash.
type LocalCache struct {
	mu         sync.RWMutex
	items      map[string]*item
	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		items:      make(map[string]*item),
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() {
	c.closeOnce.Do(func() { close(c.stopGC) })
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.sweep(now)
		case <-c.stopGC:
			return
		}
	}
}

func (c *LocalCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
	}
}

// live returns the item at key, or nil when missing or expired.
// Callers hold at least the read lock.
func (c *LocalCache) live(key string) *item {
	it, ok := c.items[key]
	if !ok || it.expired(time.Now()) {
		return nil
	}
	return it
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it := c.live(key)
	if it == nil || it.hash != nil || it.list != nil {
		return "", ErrNotFound
	}
	return it.str, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item{str: value, expireAt: expiry(ttl)}
	return nil
}

// Del removes keys of any shape, as Redis DEL does.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

// ---- Hash ----

// ReplaceHash swaps the whole hash at key for fields. An empty fields
// map deletes the key.
func (c *LocalCache) ReplaceHash(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(fields) == 0 {
		delete(c.items, key)
		return nil
	}
	h := make(map[string]string, len(fields))
	for f, v := range fields {
		h[f] = v
	}
	c.items[key] = &item{hash: h, expireAt: expiry(ttl)}
	return nil
}

func (c *LocalCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make(map[string]string)
	if it := c.live(key); it != nil {
		for f, v := range it.hash {
			result[f] = v
		}
	}
	return result, nil
}

// ---- List ----

// PushCapped prepends value and keeps at most limit entries, newest first.
func (c *LocalCache) PushCapped(_ context.Context, key, value string, limit int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.live(key)
	if it == nil {
		it = &item{}
		c.items[key] = it
	}
	n := int64(len(it.list)) + 1
	if limit > 0 && n > limit {
		n = limit
	}
	list := make([]string, n)
	list[0] = value
	copy(list[1:], it.list)
	it.list = list
	return nil
}

// LRange follows Redis semantics for non-negative start and a stop of -1
// meaning the last element.
func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it := c.live(key)
	if it == nil {
		return nil, nil
	}
	n := int64(len(it.list))
	if start >= n {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	result := make([]string, stop-start+1)
	copy(result, it.list[start:stop+1])
	return result, nil
}
