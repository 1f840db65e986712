package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	mlsync "github.com/davnau/medialens/pkg/sync"
)

// call tracks a single in-flight computation. Late arrivals for the same
// key block on 'done' and then read the shared outcome.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Cache is a TTL-bound result cache with single-flight semantics: however
// many callers ask for the same absent key concurrently, the compute
// function runs exactly once and every caller observes its outcome.
//
// Successful results live until the TTL elapses; expired entries are
// evicted lazily by the underlying store on the next access. Failed
// computations are never stored, so a later request retries.
type Cache[K comparable, V any] struct {
	store    *expirable.LRU[K, V]
	inflight mlsync.TypedSyncMap[K, *call[V]]
}

// New constructs a Cache whose entries expire 'ttl' after insertion.
// maxEntries bounds the store size (0 for unbounded); in practice the
// working set is bounded by distinct-key activity within one TTL window.
func New[K comparable, V any](maxEntries int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		store: expirable.NewLRU[K, V](maxEntries, nil, ttl),
	}
}

// Get returns the live cached value for key, if any.
func (cache *Cache[K, V]) Get(key K) (V, bool) {
	return cache.store.Get(key)
}

// GetOrCompute returns the cached value for key, or runs compute to
// produce one. Concurrent calls for the same key share a single compute
// invocation; all of them receive the same value/error pair.
func (cache *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := cache.store.Get(key); ok {
		return v, nil
	}

	leader := &call[V]{done: make(chan struct{})}
	if existing, loaded := cache.inflight.LoadOrStore(key, leader); loaded {
		<-existing.done
		return existing.value, existing.err
	}

	defer func() {
		cache.inflight.Delete(key)
		close(leader.done)
	}()

	leader.value, leader.err = compute()
	if leader.err == nil {
		cache.store.Add(key, leader.value)
	}

	return leader.value, leader.err
}

// Remove evicts the entry for key, if present. In-flight computations are
// unaffected; their result will be stored as normal once complete.
func (cache *Cache[K, V]) Remove(key K) bool {
	return cache.store.Remove(key)
}

// Len reports the number of entries currently held, including any which
// have expired but not yet been evicted.
func (cache *Cache[K, V]) Len() int {
	return cache.store.Len()
}
