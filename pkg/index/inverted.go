// ABOUTME: Full-text index: lowercased whitespace-separated words -> set
// ABOUTME: of keys, with OR-union search semantics (not AND).

package index

import (
	"strings"
	"sync"

	"github.com/arlojs/nestdb/pkg/shardmap"
)

type wordBucket[K comparable] struct {
	mu  sync.Mutex
	set keySet[K]
}

// InvertedIndex supports full-text search over tokenized document content.
// Tokenization is ASCII-whitespace splitting followed by lowercasing; it
// does not strip punctuation or stem words.
type InvertedIndex[K comparable] struct {
	buckets *shardmap.Map[string, *wordBucket[K]]
	newMu   sync.Mutex
}

// NewInvertedIndex creates an empty InvertedIndex.
func NewInvertedIndex[K comparable]() *InvertedIndex[K] {
	return &InvertedIndex[K]{buckets: shardmap.New[string, *wordBucket[K]](shardmap.HashString)}
}

// Tokenize splits content on ASCII whitespace and lowercases each token.
func Tokenize(content string) []string {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f' || r == '\r'
	})
	words := make([]string, len(fields))
	for i, w := range fields {
		words[i] = strings.ToLower(w)
	}
	return words
}

func (idx *InvertedIndex[K]) bucketFor(word string) *wordBucket[K] {
	if b, ok := idx.buckets.Get(word); ok {
		return b
	}
	idx.newMu.Lock()
	defer idx.newMu.Unlock()
	if b, ok := idx.buckets.Get(word); ok {
		return b
	}
	b := &wordBucket[K]{set: make(keySet[K])}
	idx.buckets.Set(word, b)
	return b
}

// Insert tokenizes content and adds k to every resulting word's bucket.
func (idx *InvertedIndex[K]) Insert(k K, content string) {
	for _, w := range Tokenize(content) {
		b := idx.bucketFor(w)
		b.mu.Lock()
		b.set.add(k)
		b.mu.Unlock()
	}
}

// Remove tokenizes content and drops k from every resulting word's bucket.
func (idx *InvertedIndex[K]) Remove(k K, content string) {
	for _, w := range Tokenize(content) {
		b := idx.bucketFor(w)
		b.mu.Lock()
		b.set.remove(k)
		b.mu.Unlock()
	}
}

// Search tokenizes the query text the same way as Insert and returns the
// deduplicated union of keys matching any token — an OR search, not AND.
func (idx *InvertedIndex[K]) Search(query string) []K {
	var matches [][]K
	for _, w := range Tokenize(query) {
		if b, ok := idx.buckets.Get(w); ok {
			b.mu.Lock()
			matches = append(matches, b.set.slice())
			b.mu.Unlock()
		}
	}
	return unionSlices(matches...)
}
