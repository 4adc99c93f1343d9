package index

import "testing"

func TestHashIndexInsertLookupRemove(t *testing.T) {
	h := NewHashIndex[string]()

	if err := h.Insert("k1", []string{"sku-1", "barcode-1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if k, ok := h.Lookup("sku-1"); !ok || k != "k1" {
		t.Errorf("Lookup(sku-1) = %q, %v", k, ok)
	}

	h.Remove([]string{"sku-1", "barcode-1"})
	if _, ok := h.Lookup("sku-1"); ok {
		t.Error("expected sku-1 removed")
	}
}

func TestHashIndexRejectsDuplicate(t *testing.T) {
	h := NewHashIndex[string]()

	if err := h.Insert("k1", []string{"sku-1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := h.Insert("k2", []string{"sku-1"}); err != ErrDuplicate {
		t.Errorf("got %v, want ErrDuplicate", err)
	}

	if k, _ := h.Lookup("sku-1"); k != "k1" {
		t.Errorf("duplicate insert should not have disturbed existing mapping, got %q", k)
	}
}

func TestHashIndexEmptyKeysAlwaysSucceeds(t *testing.T) {
	h := NewHashIndex[string]()
	if err := h.Insert("k1", nil); err != nil {
		t.Errorf("empty IndexKeys should always succeed, got %v", err)
	}
}

func TestHashIndexReinsertSameKeyIsNotDuplicate(t *testing.T) {
	h := NewHashIndex[string]()
	if err := h.Insert("k1", []string{"sku-1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := h.Insert("k1", []string{"sku-1"}); err != nil {
		t.Errorf("re-inserting the same key's own index keys should succeed, got %v", err)
	}
}
