package store

import (
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a new memory store. Entries never expire;
// lifecycle policy belongs to the callers, not the store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value from the store
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	if val, found := s.cache.Get(key); found {
		return val.([]byte), true, nil
	}
	return nil, false, nil
}

// Set stores a value
func (s *MemoryStore) Set(key string, value []byte) error {
	s.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// Delete removes a value
func (s *MemoryStore) Delete(key string) error {
	s.cache.Delete(key)
	return nil
}

// Keys returns all keys with the given prefix
func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	items := s.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Clear removes all values
func (s *MemoryStore) Clear() error {
	s.cache.Flush()
	return nil
}
