// ABOUTME: Multi-valued string -> set<key> index, also used to hold
// ABOUTME: materialized views under a reserved namespace prefix.

package index

import (
	"strings"
	"sync"

	"github.com/arlojs/nestdb/pkg/shardmap"
)

// ViewNamespace prefixes a view name when it is stored in the tag index's
// bucket space, so a user tag named the same as a view can never collide
// with it.
const ViewNamespace = "__View__"

type tagBucket[K comparable] struct {
	mu  sync.Mutex
	set keySet[K]
}

// TagIndex maps strings to sets of keys. The same string may be claimed
// by any number of keys; materialized views share this structure under
// the ViewNamespace prefix.
type TagIndex[K comparable] struct {
	buckets *shardmap.Map[string, *tagBucket[K]]
	newMu   sync.Mutex
}

// NewTagIndex creates an empty TagIndex.
func NewTagIndex[K comparable]() *TagIndex[K] {
	return &TagIndex[K]{buckets: shardmap.New[string, *tagBucket[K]](shardmap.HashString)}
}

// bucketFor returns the bucket for tag, creating it under newMu if this is
// the first reference. newMu only guards bucket creation, not bucket
// contents, so concurrent inserts into distinct tags never block on it
// for long.
func (t *TagIndex[K]) bucketFor(tag string) *tagBucket[K] {
	if b, ok := t.buckets.Get(tag); ok {
		return b
	}
	t.newMu.Lock()
	defer t.newMu.Unlock()
	if b, ok := t.buckets.Get(tag); ok {
		return b
	}
	b := &tagBucket[K]{set: make(keySet[K])}
	t.buckets.Set(tag, b)
	return b
}

// Insert adds k to every tag's bucket. User tags landing in the reserved
// ViewNamespace are dropped rather than stored — the namespace is for
// InsertView alone, so a document that happens to carry a tag like
// "__View__featured" can never forge membership in a materialized view.
func (t *TagIndex[K]) Insert(k K, tags []string) {
	for _, tag := range tags {
		if strings.HasPrefix(tag, ViewNamespace) {
			continue
		}
		b := t.bucketFor(tag)
		b.mu.Lock()
		b.set.add(k)
		b.mu.Unlock()
	}
}

// Remove drops k from every tag's bucket, subject to the same
// ViewNamespace guard as Insert.
func (t *TagIndex[K]) Remove(k K, tags []string) {
	for _, tag := range tags {
		if strings.HasPrefix(tag, ViewNamespace) {
			continue
		}
		b := t.bucketFor(tag)
		b.mu.Lock()
		b.set.remove(k)
		b.mu.Unlock()
	}
}

// Lookup returns every key filed under tag, or an empty slice. A tag
// shaped like the reserved view namespace never resolves here, even if a
// document's own Tags() produced it — user-facing lookups must not be
// able to read view membership by guessing the prefix.
func (t *TagIndex[K]) Lookup(tag string) []K {
	if strings.HasPrefix(tag, ViewNamespace) {
		return nil
	}
	b, ok := t.buckets.Get(tag)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set.slice()
}

// InsertView adds k to the reserved bucket for view. It writes the bucket
// directly rather than going through Insert, which drops any tag landing
// in ViewNamespace — exactly the string this constructs.
func (t *TagIndex[K]) InsertView(view string, k K) {
	b := t.bucketFor(ViewNamespace + view)
	b.mu.Lock()
	b.set.add(k)
	b.mu.Unlock()
}

// RemoveFromView drops k from the reserved bucket for view, bypassing
// Remove's namespace guard for the same reason InsertView bypasses Insert's.
func (t *TagIndex[K]) RemoveFromView(view string, k K) {
	b := t.bucketFor(ViewNamespace + view)
	b.mu.Lock()
	b.set.remove(k)
	b.mu.Unlock()
}

// LookupView returns every key filed under view. It reads the bucket
// directly rather than going through Lookup, which rejects any tag
// shaped like the reserved namespace — exactly the string this constructs.
func (t *TagIndex[K]) LookupView(view string) []K {
	b, ok := t.buckets.Get(ViewNamespace + view)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set.slice()
}
