package cache

import (
	"sync"
	"time"

	"cadenza/internal/release"
)

// entry is a cached value with an expiration time.
type entry struct {
	value      any
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// MemoryCache is a simple TTL cache for values that are expensive to
// recompute, such as the full release listing.
type MemoryCache struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]*entry),
		ttl:   ttl,
	}
	go c.cleanupExpired()
	return c
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a live value from the cache.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired() {
		return nil, false
	}
	return e.value, true
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache.
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*entry)
}

// cleanupExpired removes expired entries periodically.
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, e := range c.items {
			if e.expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

const releaseListKey = "releases"

// ReleaseCache caches the sorted release listing served by GET /releases.
// It is invalidated on every write through the API and by the filesystem
// watcher when something changes the releases root externally.
type ReleaseCache struct {
	*MemoryCache
}

// NewReleaseCache creates a release listing cache with a short TTL; the
// watcher usually invalidates it long before expiry.
func NewReleaseCache() *ReleaseCache {
	return &ReleaseCache{MemoryCache: NewMemoryCache(time.Minute)}
}

// SetList caches the release listing.
func (rc *ReleaseCache) SetList(docs []release.Document) {
	rc.Set(releaseListKey, docs)
}

// GetList retrieves the cached release listing.
func (rc *ReleaseCache) GetList() ([]release.Document, bool) {
	value, exists := rc.Get(releaseListKey)
	if !exists {
		return nil, false
	}
	docs, ok := value.([]release.Document)
	return docs, ok
}

// Invalidate drops the cached listing.
func (rc *ReleaseCache) Invalidate() {
	rc.Delete(releaseListKey)
}
