package cache

import (
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Lister is a cache that can enumerate its live keys
type Lister interface {
	Keys() ([]string, error)
}

const fragmentPrefix = "qbank-v1-fragment-"

// FragmentKey generates the cache key of a captured question fragment.
// Keys double as file names in the disk layer.
func FragmentKey(id string) string {
	return fragmentPrefix + id
}

// IDFromKey returns the question identifier encoded in a fragment key
func IDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, fragmentPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, fragmentPrefix)
	return id, id != ""
}
