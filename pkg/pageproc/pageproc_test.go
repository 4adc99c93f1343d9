package pageproc

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/arlojs/nestdb/pkg/document"
	"github.com/arlojs/nestdb/pkg/record"
	"github.com/arlojs/nestdb/pkg/store"
	"github.com/arlojs/nestdb/pkg/walpage"
)

// byteCodec is the simplest possible store.Codec fixture for Process
// itself, which is agnostic to whether its key/document types satisfy
// document.Document — that constraint belongs to a live store.Datastore,
// not to an offline page transform.
type byteCodec struct{}

func (byteCodec) EncodeKey(k string) ([]byte, error) { return []byte(k), nil }
func (byteCodec) DecodeKey(b []byte) (string, error) { return string(b), nil }
func (byteCodec) EncodeDoc(d string) ([]byte, error) { return []byte(d), nil }
func (byteCodec) DecodeDoc(b []byte) (string, error) { return string(b), nil }

// docString is a minimal document.Document fixture for the round-trip
// test, which opens a real store.Datastore against the backup directory.
type docString string

func (docString) IndexKeys() []string                { return nil }
func (docString) Tags() []string                     { return nil }
func (docString) RangeFields() []document.RangeField { return nil }
func (docString) ViewName() string                   { return "" }
func (docString) Content() string                    { return "" }

type docCodec struct{}

func (docCodec) EncodeKey(k string) ([]byte, error)    { return []byte(k), nil }
func (docCodec) DecodeKey(b []byte) (string, error)    { return string(b), nil }
func (docCodec) EncodeDoc(d docString) ([]byte, error) { return []byte(d), nil }
func (docCodec) DecodeDoc(b []byte) (docString, error) { return docString(b), nil }

func writeSourcePage(t *testing.T, dir, name string, recs []*record.Record) {
	t.Helper()
	wm, err := walpage.Open(walpage.Options{Root: dir, Name: name, PageSize: walpage.MinPageSize})
	if err != nil {
		t.Fatalf("walpage.Open: %v", err)
	}
	defer wm.Close()
	for _, r := range recs {
		if err := wm.Log(r); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
}

func readAllRecords(t *testing.T, path string) []*record.Record {
	t.Helper()
	pr, err := walpage.OpenPageFileAt(path)
	if err != nil {
		t.Fatalf("OpenPageFileAt: %v", err)
	}
	defer pr.Close()

	var out []*record.Record
	for {
		r, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestProcessToNewDirectoryIdentityTransform(t *testing.T) {
	dir := t.TempDir()
	writeSourcePage(t, dir, "src", []*record.Record{
		{Op: record.OpInsert, Key: []byte("k1"), Doc: []byte("v1")},
		{Op: record.OpInsert, Key: []byte("k2"), Doc: []byte("v2")},
	})

	err := Process(Options[string, string, string, string]{
		Root:       dir,
		SourceName: "src",
		PageSize:   walpage.MinPageSize,
		Sync:       To("dst"),
		OldCodec:   byteCodec{},
		NewCodec:   byteCodec{},
		Transform:  func(r Rec[string, string]) Rec[string, string] { return r },
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	destPath := walpage.PageFileName(dir, "dst", walpage.MinPageSize, 1)
	got := readAllRecords(t, destPath)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	// The source page is untouched when Sync=To.
	srcPath := walpage.PageFileName(dir, "src", walpage.MinPageSize, 1)
	if _, err := os.Stat(srcPath); err != nil {
		t.Errorf("source page should still exist: %v", err)
	}
}

func TestProcessOverwriteLeavesOnlyPageFile(t *testing.T) {
	dir := t.TempDir()
	writeSourcePage(t, dir, "src", []*record.Record{
		{Op: record.OpInsert, Key: []byte("k1"), Doc: []byte("v1")},
	})

	err := Process(Options[string, string, string, string]{
		Root:       dir,
		SourceName: "src",
		PageSize:   walpage.MinPageSize,
		Sync:       Overwrite(),
		OldCodec:   byteCodec{},
		NewCodec:   byteCodec{},
		Transform:  func(r Rec[string, string]) Rec[string, string] { return r },
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "src"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files in src, want exactly 1 (no leftover rpage): %v", len(entries), entries)
	}

	got := readAllRecords(t, walpage.PageFileName(dir, "src", walpage.MinPageSize, 1))
	if len(got) != 1 || string(got[0].Doc) != "v1" {
		t.Errorf("got %+v, want one record v1", got)
	}
}

func TestProcessVacuumCollapsesToLatestPerKey(t *testing.T) {
	dir := t.TempDir()
	writeSourcePage(t, dir, "src", []*record.Record{
		{Op: record.OpInsert, Key: []byte("k1"), Doc: []byte("v1")},
		{Op: record.OpInsert, Key: []byte("k2"), Doc: []byte("v1")},
		{Op: record.OpInsert, Key: []byte("k1"), Doc: []byte("v2")},
	})

	err := Process(Options[string, string, string, string]{
		Root:       dir,
		SourceName: "src",
		PageSize:   walpage.MinPageSize,
		Sync:       To("dst"),
		Vacuum:     true,
		OldCodec:   byteCodec{},
		NewCodec:   byteCodec{},
		Transform:  func(r Rec[string, string]) Rec[string, string] { return r },
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := readAllRecords(t, walpage.PageFileName(dir, "dst", walpage.MinPageSize, 1))
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (one dead record dropped)", len(got))
	}

	byKey := map[string]string{}
	for _, r := range got {
		byKey[string(r.Key)] = string(r.Doc)
	}
	if byKey["k1"] != "v2" {
		t.Errorf("k1 = %q, want the later value v2", byKey["k1"])
	}
	if byKey["k2"] != "v1" {
		t.Errorf("k2 = %q, want v1", byKey["k2"])
	}
}

func TestProcessMigrationTransformsDocuments(t *testing.T) {
	dir := t.TempDir()
	writeSourcePage(t, dir, "src", []*record.Record{
		{Op: record.OpInsert, Key: []byte("k1"), Doc: []byte("v1")},
	})

	err := Process(Options[string, string, string, string]{
		Root:       dir,
		SourceName: "src",
		PageSize:   walpage.MinPageSize,
		Sync:       To("dst"),
		OldCodec:   byteCodec{},
		NewCodec:   byteCodec{},
		Transform: func(r Rec[string, string]) Rec[string, string] {
			r.Doc = r.Doc + "-migrated"
			return r
		},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := readAllRecords(t, walpage.PageFileName(dir, "dst", walpage.MinPageSize, 1))
	if len(got) != 1 || string(got[0].Doc) != "v1-migrated" {
		t.Fatalf("got %+v, want v1-migrated", got)
	}
}

func TestProcessSourceNotExist(t *testing.T) {
	dir := t.TempDir()
	err := Process(Options[string, string, string, string]{
		Root:       dir,
		SourceName: "missing",
		PageSize:   walpage.MinPageSize,
		Sync:       To("dst"),
		OldCodec:   byteCodec{},
		NewCodec:   byteCodec{},
		Transform:  func(r Rec[string, string]) Rec[string, string] { return r },
	})
	if err != ErrSourceNotExist {
		t.Errorf("got %v, want ErrSourceNotExist", err)
	}
}

// A backup taken
// from a live store, then opened as a fresh Durable store, yields the
// same set of (key, document) pairs as the original.
func TestBackupThenOpenFromBackupRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ds, err := store.Open(store.Options[string, docString]{
		Path:      dir,
		Name:      "orders",
		PageSize:  walpage.MinPageSize,
		StoreKind: store.Durable,
	}, docCodec{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	want := map[string]docString{"k1": "v1", "k2": "v2", "k3": "v3"}
	for k, v := range want {
		if err := ds.Insert(k, v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	backupName, err := Backup(BackupOptions[string, docString]{
		Root:       dir,
		SourceName: "orders",
		PageSize:   walpage.MinPageSize,
		Codec:      docCodec{},
	})
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	restored, err := store.Open(store.Options[string, docString]{
		Path:      dir,
		Name:      backupName,
		PageSize:  walpage.MinPageSize,
		StoreKind: store.Durable,
	}, docCodec{})
	if err != nil {
		t.Fatalf("store.Open(backup): %v", err)
	}
	defer restored.Close()

	got := map[string]docString{}
	restored.Iter(func(k string, v docString) bool {
		got[k] = v
		return true
	})

	if len(got) != len(want) {
		t.Fatalf("got %d docs, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("key %s: got %q, want %q", k, got[k], v)
		}
	}
}
