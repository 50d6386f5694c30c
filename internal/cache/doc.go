// Package cache provides a generic LRU cache.
//
// Cache[K, V] keeps at most a fixed number of entries and evicts the least
// recently used one on overflow. An optional eviction callback receives
// every value that leaves the cache, which lets GPU object caches release
// or retire native handles:
//
//	passes := cache.New[desc.RenderPassDesc, RenderPass](64,
//		cache.WithEvict(func(_ desc.RenderPassDesc, rp RenderPass) {
//			rec.Retire(rp)
//		}))
//	rp, err := passes.GetOrCreate(key, func() (RenderPass, error) {
//		return dev.CreateRenderPass(key)
//	})
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
