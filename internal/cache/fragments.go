package cache

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// FragmentStore keeps captured question HTML keyed by question identifier.
// It is what makes an interrupted capture session resumable.
type FragmentStore struct {
	cache Cache
	ttl   time.Duration
}

// NewFragmentStore wraps a cache as a fragment store
func NewFragmentStore(c Cache, ttl time.Duration) *FragmentStore {
	return &FragmentStore{cache: c, ttl: ttl}
}

// Put stores the fragment of a question
func (s *FragmentStore) Put(id, html string) error {
	if id == "" {
		return fmt.Errorf("store fragment: empty identifier")
	}
	if err := s.cache.Set(FragmentKey(id), []byte(html), s.ttl); err != nil {
		return fmt.Errorf("store fragment %s: %w", id, err)
	}
	return nil
}

// Get returns the stored fragment of a question
func (s *FragmentStore) Get(id string) (string, bool) {
	data, ok := s.cache.Get(FragmentKey(id))
	if !ok {
		return "", false
	}
	return string(data), true
}

// Has reports whether a fragment is stored for the question
func (s *FragmentStore) Has(id string) bool {
	_, ok := s.cache.Get(FragmentKey(id))
	return ok
}

// IDs lists stored question identifiers in ascending numeric order
func (s *FragmentStore) IDs() ([]string, error) {
	lister, ok := s.cache.(Lister)
	if !ok {
		return nil, fmt.Errorf("list fragments: cache cannot enumerate keys")
	}
	keys, err := lister.Keys()
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}

	var ids []string
	for _, key := range keys {
		if id, ok := IDFromKey(key); ok {
			ids = append(ids, id)
		}
	}
	SortIDs(ids)
	return ids, nil
}

// SortIDs sorts question identifiers in ascending numeric order, with
// non-numeric identifiers last
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseUint(ids[i], 10, 64)
		b, errB := strconv.ParseUint(ids[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case (errA == nil) != (errB == nil):
			return errA == nil
		}
		return ids[i] < ids[j]
	})
}
