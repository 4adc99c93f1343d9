// ABOUTME: Performance benchmarks for the datastore
// ABOUTME: Measures throughput for insert, lookup, and range scans

package store

import (
	"fmt"
	"testing"
)

func BenchmarkDatastoreInsert(b *testing.B) {
	dir := b.TempDir()
	ds := mustOpenBenchStore(b, dir)
	defer ds.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := fmt.Sprintf("key%010d", i)
		if err := ds.Insert(k, employee{ID: k, Salary: fmt.Sprintf("%010d", i)}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDatastoreLookup(b *testing.B) {
	dir := b.TempDir()
	ds := mustOpenBenchStore(b, dir)
	defer ds.Close()

	const numKeys = 10000
	for i := 0; i < numKeys; i++ {
		k := fmt.Sprintf("key%010d", i)
		if err := ds.Insert(k, employee{ID: k}); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := fmt.Sprintf("key%010d", i%numKeys)
		if _, ok := ds.Lookup(k); !ok {
			b.Fatal("key not found")
		}
	}
}

func BenchmarkDatastoreRange(b *testing.B) {
	dir := b.TempDir()
	ds := mustOpenBenchStore(b, dir)
	defer ds.Close()

	const numKeys = 10000
	for i := 0; i < numKeys; i++ {
		k := fmt.Sprintf("key%010d", i)
		if err := ds.Insert(k, employee{ID: k, Salary: fmt.Sprintf("%010d", i)}); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ds.Range("salary", "0000000100", "0000000200")
	}
}

func mustOpenBenchStore(b *testing.B, dir string) *Datastore[string, employee] {
	b.Helper()
	ds, err := Open(Options[string, employee]{
		Path:      dir,
		Name:      "bench",
		PageSize:  16 * 1024,
		StoreKind: Memory,
	}, jsonCodec{})
	if err != nil {
		b.Fatal(err)
	}
	return ds
}
