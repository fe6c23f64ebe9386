// Package memtable implements the engine's in-memory write buffer: an
// ordered key -> TimestampedValue map, size-bounded by entry count, with
// an atomic Drain that empties the table and returns its contents in
// ascending key order so the caller can feed them straight into an
// SSTable builder.
package memtable

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mnohosten/siltchest/internal/value"
)

// Entry is one drained (key, TimestampedValue) pair.
type Entry struct {
	Key   string
	Value value.TimestampedValue
}

// MemTable is the ordered in-memory write buffer described in spec §4.C.
type MemTable struct {
	mu   sync.RWMutex
	list *skipList
}

// New creates an empty MemTable.
func New() *MemTable {
	return &MemTable{list: newSkipList(rand.New(rand.NewSource(time.Now().UnixNano())))}
}

// Set inserts or overwrites key.
func (m *MemTable) Set(key string, tv value.TimestampedValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list.insert(key, tv)
}

// Get returns the entry for key, if present.
func (m *MemTable) Get(key string) (value.TimestampedValue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.search(key)
}

// Size returns the number of entries currently buffered.
func (m *MemTable) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.list.size
}

// Drain atomically takes the table's contents, in ascending key order, and
// leaves the table empty. After Drain, Size() == 0.
func (m *MemTable) Drain() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, 0, m.list.size)
	for node := m.list.head.forward[0]; node != nil; node = node.forward[0] {
		entries = append(entries, Entry{Key: node.key, Value: node.val})
	}
	m.list = newSkipList(m.list.random)
	return entries
}
