package index

import (
	"sort"
	"testing"
)

func TestInvertedIndexSearchIsOrUnion(t *testing.T) {
	idx := NewInvertedIndex[string]()

	idx.Insert("k1", "The quick Brown fox")
	idx.Insert("k2", "Lazy dog sleeps")
	idx.Insert("k3", "quick sleeps")

	got := idx.Search("quick sleeps")
	sort.Strings(got)

	want := []string{"k1", "k2", "k3"}
	if len(got) != len(want) {
		t.Fatalf("Search(quick sleeps) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestInvertedIndexRemove(t *testing.T) {
	idx := NewInvertedIndex[string]()
	idx.Insert("k1", "alpha beta")
	idx.Remove("k1", "alpha beta")

	if got := idx.Search("alpha"); len(got) != 0 {
		t.Errorf("expected no matches after remove, got %v", got)
	}
}

func TestTokenizeLowercasesAndSplitsOnWhitespace(t *testing.T) {
	got := Tokenize("  Hello\tWORLD\nfoo  ")
	want := []string{"hello", "world", "foo"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
