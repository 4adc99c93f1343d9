// ABOUTME: Ordered field -> value -> set<key> index backed by an
// ABOUTME: immutable sorted map, supporting half-open lexicographic scans.

package index

import (
	"sync"

	"github.com/benbjohnson/immutable"

	"github.com/arlojs/nestdb/pkg/document"
	"github.com/arlojs/nestdb/pkg/shardmap"
)

type rangeBucket[K comparable] struct {
	mu sync.Mutex
	sm *immutable.SortedMap[string, keySet[K]]
}

// RangeIndex maps field names to an ordered map of value -> set<key>,
// supporting half-open interval scans over lexicographically-ordered
// string values. Numeric range queries are out of scope: values are
// always compared as strings.
type RangeIndex[K comparable] struct {
	fields *shardmap.Map[string, *rangeBucket[K]]
	newMu  sync.Mutex
}

// NewRangeIndex creates an empty RangeIndex.
func NewRangeIndex[K comparable]() *RangeIndex[K] {
	return &RangeIndex[K]{fields: shardmap.New[string, *rangeBucket[K]](shardmap.HashString)}
}

func (r *RangeIndex[K]) bucketFor(field string) *rangeBucket[K] {
	if b, ok := r.fields.Get(field); ok {
		return b
	}
	r.newMu.Lock()
	defer r.newMu.Unlock()
	if b, ok := r.fields.Get(field); ok {
		return b
	}
	b := &rangeBucket[K]{sm: immutable.NewSortedMap[string, keySet[K]](nil)}
	r.fields.Set(field, b)
	return b
}

// Insert places k under every (field, value) pair given.
func (r *RangeIndex[K]) Insert(k K, fields []document.RangeField) {
	for _, f := range fields {
		b := r.bucketFor(f.Field)
		b.mu.Lock()
		set, ok := b.sm.Get(f.Value)
		if !ok {
			set = make(keySet[K])
		}
		set.add(k)
		b.sm = b.sm.Set(f.Value, set)
		b.mu.Unlock()
	}
}

// Remove drops k from every (field, value) pair given.
func (r *RangeIndex[K]) Remove(k K, fields []document.RangeField) {
	for _, f := range fields {
		b := r.bucketFor(f.Field)
		b.mu.Lock()
		if set, ok := b.sm.Get(f.Value); ok {
			set.remove(k)
			if len(set) == 0 {
				b.sm = b.sm.Delete(f.Value)
			} else {
				b.sm = b.sm.Set(f.Value, set)
			}
		}
		b.mu.Unlock()
	}
}

// Range returns every key stored under field for values in the half-open
// interval [from, to). An unknown field yields an empty slice.
func (r *RangeIndex[K]) Range(field, from, to string) []K {
	b, ok := r.fields.Get(field)
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var matches [][]K
	it := b.sm.Iterator()
	for !it.Done() {
		value, set, ok := it.Next()
		if !ok {
			continue
		}
		if value < from {
			continue
		}
		if value >= to {
			break
		}
		matches = append(matches, set.slice())
	}
	return unionSlices(matches...)
}
