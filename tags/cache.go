package tags

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// Cache stores table catalogs by database name. Implementations must be
// safe for concurrent use; concurrent first population is last write wins.
type Cache interface {
	Get(database string) ([]string, bool)
	Set(database string, tables []string)
}

// MemoryCache is an in-process Cache holding at most a fixed number of
// databases, evicting the least recently used.
type MemoryCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewMemoryCache creates a cache for up to maxDatabases catalogs; zero
// means no limit.
func NewMemoryCache(maxDatabases int) *MemoryCache {
	return &MemoryCache{cache: lru.New(maxDatabases)}
}

// Get returns a copy of the cached catalog.
func (m *MemoryCache) Get(database string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.cache.Get(database)
	if !ok {
		return nil, false
	}
	tables := v.([]string)
	return append([]string(nil), tables...), true
}

// Set stores a copy of tables.
func (m *MemoryCache) Set(database string, tables []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(database, append([]string(nil), tables...))
}

// Remove drops the catalog of database.
func (m *MemoryCache) Remove(database string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(database)
}

// Len returns the number of cached catalogs.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.Len()
}
