// Package cache provides a bounded LRU cache for retrieval results, so that
// repeated identical queries against an unchanged graph skip re-embedding
// and re-scoring.
//
// Usage:
//
//	rc := cache.NewRetrievalCache(1000, 5*time.Minute)
//	key := rc.Key(query, topK, timeStart, timeEnd)
//	if v, ok := rc.Get(key); ok {
//		return v.([]temporal.Scored)
//	}
//	// ... compute results ...
//	rc.Put(key, results)
package cache

import (
	"container/list"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// RetrievalCache is a thread-safe LRU cache keyed by a hash of the query
// parameters (query text, top_k, and optional time bounds). Values are
// stored as interface{} to avoid a dependency from this package onto the
// retrieval result type (pkg/temporal's Scored); callers type-assert on Get.
type RetrievalCache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration
	enabled bool

	list  *list.List
	items map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key       uint64
	value     interface{}
	expiresAt time.Time
}

// NewRetrievalCache creates a cache holding up to maxSize entries, each
// expiring ttl after insertion (ttl == 0 disables expiration, leaving only
// LRU eviction).
func NewRetrievalCache(maxSize int, ttl time.Duration) *RetrievalCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &RetrievalCache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key hashes the parameters of a retrieval call into a cache key. Two calls
// with identical query/topK/time bounds hash to the same key.
func (c *RetrievalCache) Key(query string, topK int, timeStart, timeEnd *int64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(query))
	h.Write([]byte(strconv.Itoa(topK)))
	if timeStart != nil {
		h.Write([]byte(strconv.FormatInt(*timeStart, 10)))
	}
	if timeEnd != nil {
		h.Write([]byte(strconv.FormatInt(*timeEnd, 10)))
	}
	return h.Sum64()
}

// Get retrieves a cached result if present and not expired.
func (c *RetrievalCache) Get(key uint64) (interface{}, bool) {
	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.RLock()
	elem, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		c.removeElement(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return entry.value, true
}

// Put stores a retrieval result under key, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *RetrievalCache) Put(key uint64, value interface{}) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{key: key, value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	elem := c.list.PushFront(entry)
	c.items[key] = elem
}

// Remove evicts a single key, e.g. after a build invalidates prior results.
func (c *RetrievalCache) Remove(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear empties the cache. Call after build_spectral_structure, since a
// rebuild can change scores for previously cached queries.
func (c *RetrievalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *RetrievalCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// CacheStats reports cache hit/miss performance.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns current cache performance counters.
func (c *RetrievalCache) Stats() CacheStats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return CacheStats{Size: size, MaxSize: c.maxSize, Hits: hits, Misses: misses, HitRate: hitRate}
}

// SetEnabled toggles caching. Disabling clears all entries.
func (c *RetrievalCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.list.Init()
		c.items = make(map[uint64]*list.Element, c.maxSize)
	}
}

func (c *RetrievalCache) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
	}
}

func (c *RetrievalCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
}

var (
	globalCache     *RetrievalCache
	globalCacheOnce sync.Once
)

// Global returns the process-wide retrieval cache, lazily created with
// default settings (1000 entries, 5-minute TTL) on first use.
func Global() *RetrievalCache {
	globalCacheOnce.Do(func() {
		globalCache = NewRetrievalCache(1000, 5*time.Minute)
	})
	return globalCache
}

// ConfigureGlobal sets the global cache's parameters. Only the first call
// takes effect; call it before the first Global() in process startup.
func ConfigureGlobal(maxSize int, ttl time.Duration) {
	globalCacheOnce.Do(func() {
		globalCache = NewRetrievalCache(maxSize, ttl)
	})
}
