package sstable

import (
	"os"
	"testing"

	"github.com/mnohosten/siltchest/internal/compression"
	"github.com/mnohosten/siltchest/internal/value"
)

func entry(key string, ts int64, v value.Value) OrderedEntry {
	return OrderedEntry{Key: key, Value: value.TimestampedValue{Timestamp: value.NewTimestamp(ts), Value: v}}
}

func TestBuildAndGet(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{
		entry("apple", 1, value.String("red")),
		entry("banana", 2, value.String("yellow")),
		entry("cherry", 3, value.String("dark red")),
	}

	sst, err := Build(dir, "000001", compression.AlgorithmZstd, stream)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, e := range stream {
		got, ok, err := sst.Get(e.Key)
		if err != nil {
			t.Fatalf("get %q: %v", e.Key, err)
		}
		if !ok {
			t.Fatalf("key %q not found", e.Key)
		}
		if got.Value.Str != e.Value.Value.Str {
			t.Fatalf("key %q: got %q, want %q", e.Key, got.Value.Str, e.Value.Value.Str)
		}
	}

	if _, ok, _ := sst.Get("missing"); ok {
		t.Fatal("expected missing key to be absent")
	}
}

func TestBuildCollapsesDuplicateKeysByTimestamp(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{
		entry("k", 5, value.Integer(1)),
		entry("k", 2, value.Integer(2)), // older, should lose
	}
	sst, err := Build(dir, "000001", compression.AlgorithmNone, stream)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got, ok, err := sst.Get("k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Value.Int != 1 {
		t.Fatalf("expected newer-timestamp entry to win, got %d", got.Value.Int)
	}
}

func TestBuildTiePrefersSecondOccurrence(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{
		entry("k", 5, value.Integer(1)),
		entry("k", 5, value.Integer(2)), // tie, second wins
	}
	sst, err := Build(dir, "000001", compression.AlgorithmNone, stream)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got, _, err := sst.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if got.Value.Int != 2 {
		t.Fatalf("expected second occurrence to win on tie, got %d", got.Value.Int)
	}
}

func TestOpenReadsIndexOnly(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{entry("a", 1, value.Integer(1)), entry("b", 2, value.Integer(2))}
	if _, err := Build(dir, "000001", compression.AlgorithmSnappy, stream); err != nil {
		t.Fatalf("build: %v", err)
	}

	reopened, err := Open(dir, "000001")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if reopened.NumEntries() != 2 {
		t.Fatalf("expected 2 entries, got %d", reopened.NumEntries())
	}
	got, ok, err := reopened.Get("b")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if got.Value.Int != 2 {
		t.Fatalf("got %d, want 2", got.Value.Int)
	}
}

func TestOpenMissingChestIsFatal(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{entry("a", 1, value.Integer(1))}
	sst, err := Build(dir, "000001", compression.AlgorithmNone, stream)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_ = sst
	if err := os.Remove(chestPath(dir, "000001")); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir, "000001"); err == nil {
		t.Fatal("expected error opening index without matching chest file")
	}
}

func TestKeys(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{entry("a", 1, value.Integer(1)), entry("b", 2, value.Integer(2))}
	sst, err := Build(dir, "000001", compression.AlgorithmNone, stream)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	keys := sst.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestIterator(t *testing.T) {
	dir := t.TempDir()
	stream := []OrderedEntry{
		entry("a", 1, value.Integer(1)),
		entry("b", 2, value.Integer(2)),
		entry("c", 3, value.Integer(3)),
	}
	sst, err := Build(dir, "000001", compression.AlgorithmZstd, stream)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	it, err := sst.Iterator()
	if err != nil {
		t.Fatalf("iterator: %v", err)
	}
	defer it.Close()

	var got []string
	for {
		ok, err := it.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, it.Entry().Key)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected iteration order: %v", got)
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	older, err := Build(dir, "000001", compression.AlgorithmNone, []OrderedEntry{
		entry("a", 1, value.Integer(10)),
		entry("b", 1, value.Integer(20)),
		entry("d", 1, value.Integer(40)),
	})
	if err != nil {
		t.Fatalf("build older: %v", err)
	}
	newer, err := Build(dir, "000002", compression.AlgorithmNone, []OrderedEntry{
		entry("b", 2, value.Integer(21)), // newer, should win over older's b
		entry("c", 2, value.Integer(30)),
	})
	if err != nil {
		t.Fatalf("build newer: %v", err)
	}

	merged, err := older.Merge(newer, "000003", compression.AlgorithmNone)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.NumEntries() != 4 {
		t.Fatalf("expected 4 merged entries, got %d", merged.NumEntries())
	}

	cases := map[string]int64{"a": 10, "b": 21, "c": 30, "d": 40}
	for k, want := range cases {
		got, ok, err := merged.Get(k)
		if err != nil || !ok {
			t.Fatalf("get %q: ok=%v err=%v", k, ok, err)
		}
		if got.Value.Int != want {
			t.Fatalf("key %q: got %d, want %d", k, got.Value.Int, want)
		}
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	sst, err := Build(dir, "000001", compression.AlgorithmNone, []OrderedEntry{entry("a", 1, value.Integer(1))})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := sst.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := Open(dir, "000001"); err == nil {
		t.Fatal("expected open to fail after delete")
	}
}
