package walpage

import (
	"testing"

	"github.com/arlojs/nestdb/pkg/record"
)

func TestPageFileNameRoundTrip(t *testing.T) {
	path := pageFileName("/data", "orders", 5000, 3)
	idx, ok := parsePageIndex(path, 5000)
	if !ok {
		t.Fatalf("parsePageIndex failed to parse %s", path)
	}
	if idx != 3 {
		t.Errorf("got index %d, want 3", idx)
	}
}

func TestParsePageIndexRejectsUnrelatedFiles(t *testing.T) {
	if _, ok := parsePageIndex("README.md", 5000); ok {
		t.Error("expected non-page file to be rejected")
	}
}

func TestScanHighestPageIndexEmptyDir(t *testing.T) {
	dir := t.TempDir()
	idx, err := scanHighestPageIndex(dir, "orders", 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Errorf("got %d, want 0 for nonexistent directory", idx)
	}
}

func TestOpenOrCreatePageRecomputesUsedFromExistingData(t *testing.T) {
	dir := t.TempDir()

	pf, err := openOrCreatePage(dir, "orders", MinPageSize, 1)
	if err != nil {
		t.Fatalf("openOrCreatePage: %v", err)
	}

	rec := &record.Record{Op: record.OpInsert, Key: []byte("k1"), Doc: []byte("v1")}
	if err := pf.append(rec.Encode()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := pf.append(rec.Encode()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := pf.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := pf.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := openOrCreatePage(dir, "orders", MinPageSize, 1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.close()

	if reopened.used != 2 {
		t.Errorf("got used=%d, want 2", reopened.used)
	}
}
