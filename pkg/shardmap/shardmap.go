// ABOUTME: Generic concurrent map sharded by key hash, one RWMutex per
// ABOUTME: shard, so writes to keys in different shards never contend.

package shardmap

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 64

// Hasher reduces a key to a uint64 used to pick its shard. Callers supply
// one matching their key type; HashString is provided for string keys.
type Hasher[K comparable] func(K) uint64

// HashString hashes a string key with xxhash, giving a good shard spread
// without needing a per-key allocation.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// HashAny hashes an arbitrary key via its default string formatting. It
// is a convenience for key types without a cheaper structural hash; a
// caller whose key type has an obvious direct encoding (an integer, a
// UUID's bytes) should prefer a Hasher built on that instead.
func HashAny[K any](k K) uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%v", k))
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// Map is a concurrent map whose key space is partitioned into a fixed
// number of independently-locked shards. Operations on keys landing in
// different shards proceed in parallel; operations on the same key
// serialize through that shard's lock, matching a per-bucket locking
// discipline rather than one lock for the whole map.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   Hasher[K]
}

// New creates a Map with the default shard count.
func New[K comparable, V any](hash Hasher[K]) *Map[K, V] {
	return NewWithShards[K, V](defaultShards, hash)
}

// NewWithShards creates a Map with an explicit shard count.
func NewWithShards[K comparable, V any](n int, hash Hasher[K]) *Map[K, V] {
	if n <= 0 {
		n = defaultShards
	}
	m := &Map[K, V]{
		shards: make([]*shard[K, V], n),
		hash:   hash,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{m: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	h := m.hash(key)
	return m.shards[h%uint64(len(m.shards))]
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Set installs value for key, replacing any existing mapping.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Delete removes key if present; it is a no-op otherwise.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Len returns the total number of entries across all shards. It takes a
// read lock on each shard in turn, so it is a snapshot, not atomic across
// the whole map.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.m)
		s.mu.RUnlock()
	}
	return total
}

// Iter calls fn for a snapshot of every (key, value) pair in the map. Each
// shard is visited at most once under its own read lock; entries from
// other shards may be concurrently mutated mid-iteration, so the overall
// sequence reflects some interleaving of concurrent writers rather than a
// single consistent point in time. Iteration stops early if fn returns
// false.
func (m *Map[K, V]) Iter(fn func(K, V) bool) {
	for _, s := range m.shards {
		if !iterShard(s, fn) {
			return
		}
	}
}

func iterShard[K comparable, V any](s *shard[K, V], fn func(K, V) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.m {
		if !fn(k, v) {
			return false
		}
	}
	return true
}
