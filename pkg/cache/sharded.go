package cache

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/c360/semmodel/errors"
)

// DefaultShards is the shard count used when a caller asks for zero shards.
const DefaultShards = 16

// shardedCache spreads keys over independent LRU shards by xxhash so lookups
// and inserts on unrelated keys never wait on the same lock. Capacity is
// split evenly; eviction is LRU within each shard.
type shardedCache[V any] struct {
	shards []*lruCache[V]
	stats  *Statistics
	group  singleflight.Group
}

// NewSharded creates a sharded LRU cache holding roughly maxSize entries.
func NewSharded[V any](maxSize, shards int, options ...Option[V]) (Memo[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "NewSharded", "max size must be positive")
	}
	if shards <= 0 {
		shards = DefaultShards
	}
	if shards > maxSize {
		shards = maxSize
	}
	opts := applyOptions(options...)

	stats := NewStatistics()
	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "NewSharded", "metrics registration")
		}
	}

	perShard := (maxSize + shards - 1) / shards
	total := &atomic.Int64{}
	sc := &shardedCache[V]{
		shards: make([]*lruCache[V], shards),
		stats:  stats,
	}
	for i := range sc.shards {
		sc.shards[i] = newLRUCache(perShard, stats, metrics, total, opts.evictCallback)
	}
	return sc, nil
}

func (s *shardedCache[V]) shard(key string) *lruCache[V] {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Get retrieves a value from the key's shard.
func (s *shardedCache[V]) Get(key string) (V, bool) {
	return s.shard(key).Get(key)
}

// Set stores a value in the key's shard.
func (s *shardedCache[V]) Set(key string, value V) (bool, error) {
	return s.shard(key).Set(key, value)
}

// Delete removes an entry from the key's shard.
func (s *shardedCache[V]) Delete(key string) (bool, error) {
	return s.shard(key).Delete(key)
}

// Clear empties every shard.
func (s *shardedCache[V]) Clear() error {
	for _, sh := range s.shards {
		if err := sh.Clear(); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of entries across all shards.
func (s *shardedCache[V]) Size() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Size()
	}
	return n
}

// Keys returns the keys of every shard, each shard in LRU order.
func (s *shardedCache[V]) Keys() []string {
	keys := make([]string, 0, s.Size())
	for _, sh := range s.shards {
		keys = append(keys, sh.Keys()...)
	}
	return keys
}

// Stats returns the statistics shared by all shards.
func (s *shardedCache[V]) Stats() *Statistics {
	return s.stats
}

// Close is a no-op.
func (s *shardedCache[V]) Close() error {
	return nil
}

// GetOrCompute returns the cached value or computes it once per key.
func (s *shardedCache[V]) GetOrCompute(key string, fn func() (V, error)) (V, error) {
	return getOrCompute[V](s, &s.group, key, fn)
}
