// ABOUTME: Unique string -> key index. Each IndexKey a document exposes
// ABOUTME: must map to at most one key across the whole datastore.

package index

import (
	"github.com/arlojs/nestdb/pkg/shardmap"
)

// HashIndex enforces uniqueness of a set of strings against a single key
// each. Insertion is all-or-nothing: if any of a document's index keys is
// already claimed, nothing is installed and ErrDuplicate is returned.
type HashIndex[K comparable] struct {
	m    *shardmap.Map[string, K]
	hash func(K) uint64
}

// NewHashIndex creates an empty HashIndex.
func NewHashIndex[K comparable]() *HashIndex[K] {
	return &HashIndex[K]{m: shardmap.New[string, K](shardmap.HashString)}
}

// Insert installs every string in keys as a unique mapping to k. If any
// string is already claimed by a different key, no mapping is installed
// and ErrDuplicate is returned — the caller's document is not partially
// indexed.
func (h *HashIndex[K]) Insert(k K, keys []string) error {
	for _, s := range keys {
		if existing, ok := h.m.Get(s); ok && existing != k {
			return ErrDuplicate
		}
	}
	for _, s := range keys {
		h.m.Set(s, k)
	}
	return nil
}

// Remove drops every string in keys from the index.
func (h *HashIndex[K]) Remove(keys []string) {
	for _, s := range keys {
		h.m.Delete(s)
	}
}

// Lookup returns the key claiming s, if any.
func (h *HashIndex[K]) Lookup(s string) (K, bool) {
	return h.m.Get(s)
}
