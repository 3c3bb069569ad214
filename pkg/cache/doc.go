// Package cache provides bounded, thread-safe caches with always-on statistics
// and optional Prometheus metrics.
//
// # Quick Start
//
//	memo, err := cache.NewSharded[string](10000, 16)
//	if err != nil {
//		return err
//	}
//	norm, err := memo.GetOrCompute(text, func() (string, error) {
//		return normalize(text), nil
//	})
//
// # Cache Types
//
// LRU: a single doubly-linked list and map behind one mutex. Simple, exact
// global LRU order, but every operation serializes on the same lock.
//
//	c, _ := cache.NewLRU[V](maxSize)
//
// Sharded: keys are spread over independent LRU shards by xxhash. Capacity is
// split evenly between shards and eviction is LRU within a shard. Callers
// working on unrelated keys hit different locks, which is what hot
// normalization paths want.
//
//	c, _ := cache.NewSharded[V](maxSize, shards)
//
// # Get-or-compute
//
// Both types implement Memo. GetOrCompute consults the cache and, on a miss,
// runs the compute function under a golang.org/x/sync/singleflight group keyed
// by the cache key: concurrent callers missing on the same key wait for one
// computation, callers on other keys are not blocked. Failed computations are
// not cached. Empty keys bypass the cache entirely.
//
// # Observability
//
// Statistics are always collected (hits, misses, sets, deletes, evictions,
// current and max size). Passing WithMetrics registers Prometheus counters
// under the semmodel_cache_* names with a component label:
//
//	c, _ := cache.NewSharded[[]string](10000, 16,
//		cache.WithMetrics[[]string](registry, "tag_decompose"))
package cache
