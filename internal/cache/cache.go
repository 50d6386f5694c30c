package cache

import (
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache is a generic LRU cache with a hard capacity. When an insertion
// exceeds the capacity the least recently used entry is evicted and handed
// to the eviction callback.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[K, V]
	capacity int
	onEvict  func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvict sets a callback run for every entry that leaves the cache
// through eviction, replacement, Delete or Clear. It runs under the cache
// lock and must not call back into the cache.
func WithEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a new cache holding at most capacity entries.
// A capacity of 0 means unlimited.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{capacity: capacity}
	for _, opt := range opts {
		opt(c)
	}
	size := capacity
	if size <= 0 {
		size = math.MaxInt32
	}
	// NewLRU only fails for a non-positive size.
	c.lru, _ = simplelru.NewLRU[K, V](size, c.release)
	return c
}

func (c *Cache[K, V]) release(key K, value V) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// Get retrieves a value from the cache.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set stores a value in the cache, replacing any previous value for key.
// A replaced value is passed to the eviction callback.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, replaced := c.lru.Peek(key)
	c.add(key, value)
	if replaced {
		c.release(key, old)
	}
}

// GetOrCreate returns the cached value or creates it.
// create is called under lock to prevent duplicate creation; a failed
// create leaves the cache unchanged.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lru.Get(key); ok {
		c.hits++
		return v, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.add(key, value)
	return value, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Remove(key)
}

// Clear removes all entries from the cache, oldest first.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			return
		}
	}
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// Capacity returns the capacity of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// add inserts or updates key. Caller must hold c.mu.
func (c *Cache[K, V]) add(key K, value V) {
	if c.lru.Add(key, value) {
		c.evictions++
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the cache capacity.
	Capacity int
	// Hits is the number of lookups that found an entry.
	Hits uint64
	// Misses is the number of lookups that did not.
	Misses uint64
	// HitRate is the cache hit rate 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries evicted for capacity.
	Evictions uint64
}
