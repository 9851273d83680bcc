package cache

import (
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process layer of the fragment store. Values are
// copied on the way in and out so callers never share a buffer.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache; cleanupInterval 0 disables the
// background janitor
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	return clone(v.([]byte)), true
}

// Set stores value; ttl 0 (gocache.DefaultExpiration) uses the cache default
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.items.Set(key, clone(value), ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Keys lists the keys of unexpired entries, sorted
func (c *MemoryCache) Keys() ([]string, error) {
	live := c.items.Items()
	keys := make([]string, 0, len(live))
	for k := range live {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
