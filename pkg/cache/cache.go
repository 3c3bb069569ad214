// Package cache provides generic, thread-safe, bounded cache implementations.
//
// This package offers two cache types:
//   - LRUCache: Least Recently Used eviction behind a single lock
//   - ShardedCache: N independent LRU shards so unrelated keys never contend
//
// Both implement Memo, adding get-or-compute semantics where concurrent misses for
// the same key compute once. Statistics are always collected; Prometheus metrics
// are optional via functional options.
package cache

import (
	"github.com/c360/semmodel/errors"
)

// Cache represents a generic cache interface that all cache implementations must satisfy.
// The cache is parameterized by value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	// Returns an error if the operation fails (e.g., invalid key).
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics

	// Close releases any resources held by the cache.
	Close() error
}

// Memo is a Cache that can compute missing values.
type Memo[V any] interface {
	Cache[V]

	// GetOrCompute returns the cached value for key, or calls fn, stores and
	// returns its result. Concurrent callers missing on the same key share one
	// call to fn. Errors from fn are returned and never cached.
	GetOrCompute(key string, fn func() (V, error)) (V, error)
}

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
