package index

import (
	"sort"
	"testing"

	"github.com/arlojs/nestdb/pkg/document"
)

func TestRangeIndexHalfOpenInterval(t *testing.T) {
	r := NewRangeIndex[string]()

	r.Insert("k1", []document.RangeField{{Field: "salary", Value: "200"}})
	r.Insert("k2", []document.RangeField{{Field: "salary", Value: "250"}})
	r.Insert("k3", []document.RangeField{{Field: "salary", Value: "300"}})

	got := r.Range("salary", "200", "300")
	sort.Strings(got)

	want := []string{"k1", "k2"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Range(salary, 200, 300) = %v, want %v", got, want)
	}
}

func TestRangeIndexEmptyIntervalWhenFromEqualsTo(t *testing.T) {
	r := NewRangeIndex[string]()
	r.Insert("k1", []document.RangeField{{Field: "salary", Value: "200"}})

	if got := r.Range("salary", "200", "200"); len(got) != 0 {
		t.Errorf("Range(x, x) should be empty, got %v", got)
	}
}

func TestRangeIndexUnknownFieldIsEmpty(t *testing.T) {
	r := NewRangeIndex[string]()
	if got := r.Range("nonexistent", "a", "z"); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestRangeIndexRemove(t *testing.T) {
	r := NewRangeIndex[string]()
	r.Insert("k1", []document.RangeField{{Field: "salary", Value: "200"}})
	r.Remove("k1", []document.RangeField{{Field: "salary", Value: "200"}})

	if got := r.Range("salary", "100", "300"); len(got) != 0 {
		t.Errorf("expected empty after remove, got %v", got)
	}
}
