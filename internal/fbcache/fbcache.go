// Package fbcache caches native framebuffer objects by framebuffer
// descriptor.
//
// Entries live in an arena addressed by generation-checked handles. The
// currently bound entry is remembered as a handle, so dropping the binding
// or evicting the entry can never leave a dangling reference: a stale
// handle simply fails to resolve.
package fbcache

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/framebuffer/desc"
)

// ErrCreate wraps failures of the create callback.
var ErrCreate = errors.New("fbcache: create framebuffer")

// Handle addresses an arena entry. The zero Handle is invalid.
type Handle struct {
	index      uint32
	generation uint32
}

// Valid reports whether h was ever issued. It does not mean the entry is
// still live; use Cache.Lookup for that.
func (h Handle) Valid() bool { return h.generation != 0 }

// GetOptions modify a single lookup.
type GetOptions struct {
	// Uncached binds the created object without inserting it into the
	// map. It is retired when the binding is dropped. Used for
	// framebuffers with an external resolve view.
	Uncached bool
}

// Stats holds cache counters.
type Stats struct {
	Len       int
	FastHits  uint64
	Hits      uint64
	Misses    uint64
	Creations uint64
	Retired   uint64
}

type slot[V any] struct {
	value      V
	generation uint32
	live       bool
	uncached   bool
}

// Cache maps framebuffer descriptors to objects of type V. Objects leaving
// the cache are passed to the retire callback, which typically queues them
// for destruction once the GPU no longer uses them.
//
// Cache is not safe for concurrent use.
type Cache[V any] struct {
	entries *lru.Cache[desc.FramebufferDesc, Handle]
	arena   []slot[V]
	free    []uint32
	retire  func(V)

	disabled bool
	bound    Handle
	boundKey desc.FramebufferDesc

	stats Stats
}

// New returns a cache holding up to size objects. When disabled is set, a
// map hit retires the stored object and creates a fresh one.
func New[V any](size int, disabled bool, retire func(V)) (*Cache[V], error) {
	c := &Cache[V]{retire: retire, disabled: disabled}
	entries, err := lru.NewWithEvict[desc.FramebufferDesc, Handle](size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("fbcache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Get returns the object for key, creating it on a miss. The returned
// object becomes the bound one.
func (c *Cache[V]) Get(key desc.FramebufferDesc, opts GetOptions, create func() (V, error)) (V, error) {
	if s, ok := c.liveSlot(c.bound); ok && !s.uncached && !opts.Uncached && c.boundKey == key {
		c.stats.FastHits++
		return s.value, nil
	}

	if !opts.Uncached {
		if h, ok := c.entries.Get(key); ok {
			if !c.disabled {
				c.stats.Hits++
				c.bind(key, h)
				return c.arena[h.index].value, nil
			}
			c.entries.Remove(key)
		}
	}
	c.stats.Misses++

	v, err := create()
	if err != nil {
		var zero V
		return zero, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	c.stats.Creations++

	h := c.alloc(v, opts.Uncached)
	if !opts.Uncached {
		c.entries.Add(key, h)
	}
	c.bind(key, h)
	return v, nil
}

// Bound returns the handle of the bound object.
func (c *Cache[V]) Bound() Handle { return c.bound }

// Lookup resolves h. It fails for handles whose entry was released.
func (c *Cache[V]) Lookup(h Handle) (V, bool) {
	s, ok := c.liveSlot(h)
	if !ok {
		var zero V
		return zero, false
	}
	return s.value, true
}

// Invalidate drops the binding. Cached objects stay in the map; an
// uncached bound object is retired.
func (c *Cache[V]) Invalidate() {
	c.unbind()
}

// Clear retires every object.
func (c *Cache[V]) Clear() {
	c.unbind()
	c.entries.Purge()
}

// Len returns the number of cached objects.
func (c *Cache[V]) Len() int { return c.entries.Len() }

// Stats returns the cache counters.
func (c *Cache[V]) Stats() Stats {
	s := c.stats
	s.Len = c.entries.Len()
	return s
}

func (c *Cache[V]) bind(key desc.FramebufferDesc, h Handle) {
	if h != c.bound {
		c.unbind()
	}
	c.bound = h
	c.boundKey = key
}

func (c *Cache[V]) unbind() {
	if s, ok := c.liveSlot(c.bound); ok && s.uncached {
		c.release(c.bound.index)
	}
	c.bound = Handle{}
	c.boundKey = desc.FramebufferDesc{}
}

func (c *Cache[V]) onEvict(_ desc.FramebufferDesc, h Handle) {
	if _, ok := c.liveSlot(h); ok {
		c.release(h.index)
	}
}

func (c *Cache[V]) liveSlot(h Handle) (*slot[V], bool) {
	if !h.Valid() || int(h.index) >= len(c.arena) {
		return nil, false
	}
	s := &c.arena[h.index]
	if !s.live || s.generation != h.generation {
		return nil, false
	}
	return s, true
}

func (c *Cache[V]) alloc(v V, uncached bool) Handle {
	var idx uint32
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		idx = uint32(len(c.arena))
		c.arena = append(c.arena, slot[V]{})
	}
	s := &c.arena[idx]
	s.generation++
	s.value = v
	s.live = true
	s.uncached = uncached
	return Handle{index: idx, generation: s.generation}
}

func (c *Cache[V]) release(idx uint32) {
	s := &c.arena[idx]
	v := s.value
	var zero V
	s.value = zero
	s.live = false
	s.uncached = false
	c.free = append(c.free, idx)
	c.stats.Retired++
	if c.retire != nil {
		c.retire(v)
	}
}
