// Package sstable implements the immutable on-disk sorted run: a pair of
// files per id — "<id>.chest" (packed values) and "<id>.index" (a
// serialized, dense key->segment index) — built from an ordered stream,
// point-readable, and mergeable with another run.
//
// The file-splitting and index/footer bookkeeping is adapted from the
// teacher repo's pkg/lsm/sstable.go (which instead writes one combined
// file with a trailing footer); here the two concerns are split into
// separate files because the on-disk contract calls for a <id>.chest /
// <id>.index pair by name. Compression of each stored value uses
// github.com/klauspost/compress, matching the teacher's pkg/compression;
// the data file's integrity is covered by a BLAKE2b-256 checksum of the
// whole chest file (golang.org/x/crypto/blake2b), recorded in the index
// file, instead of the teacher's per-block CRC.
package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/mnohosten/siltchest/internal/compression"
	"github.com/mnohosten/siltchest/internal/value"
)

// Segment is the byte range of one entry within a data file.
type Segment struct {
	Offset uint64
	Length uint64
}

type indexEntry struct {
	Key     string
	Segment Segment
}

// SSTable is an immutable on-disk sorted run: "<id>.chest" + "<id>.index"
// under dir.
type SSTable struct {
	dir         string
	id          string
	entries     []indexEntry // sorted ascending by Key
	compression compression.Algorithm
	checksum    [32]byte

	verifyOnce sync.Once
	verifyErr  error
}

func chestPath(dir, id string) string { return filepath.Join(dir, id+".chest") }
func indexPath(dir, id string) string { return filepath.Join(dir, id+".index") }

// ID returns the run's id (a nanosecond-timestamp string; also its age key).
func (s *SSTable) ID() string { return s.id }

// NumEntries returns the number of keys this run holds.
func (s *SSTable) NumEntries() int { return len(s.entries) }

// OrderedEntry is one (key, TimestampedValue) pair yielded by Build's
// input stream or an SSTable's iterator.
type OrderedEntry struct {
	Key   string
	Value value.TimestampedValue
}

// Build consumes an ordered-by-key stream (key-monotone; the same key may
// appear twice in succession, as it does during a merge) and writes a new
// SSTable under dir named id. When a key repeats, the entry with the
// greater timestamp wins; ties prefer the second occurrence, which by
// convention is always the newer source (see Merge).
func Build(dir, id string, algo compression.Algorithm, stream []OrderedEntry) (*SSTable, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sstable: create dir: %w", err)
	}

	chestFile, err := os.Create(chestPath(dir, id))
	if err != nil {
		return nil, fmt.Errorf("sstable: create chest file: %w", err)
	}
	defer chestFile.Close()

	comp, err := compression.New(algo)
	if err != nil {
		return nil, err
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("sstable: new hasher: %w", err)
	}
	writer := io.MultiWriter(chestFile, hasher)

	var offset uint64
	var entries []indexEntry

	i := 0
	for i < len(stream) {
		cur := stream[i]
		winner := cur.Value
		j := i + 1
		if j < len(stream) && stream[j].Key == cur.Key {
			next := stream[j]
			if next.Value.Timestamp.Less(winner.Timestamp) {
				// first occurrence newer; keep it
			} else {
				winner = next.Value
			}
			i = j + 1
		} else {
			i = j
		}

		encoded := value.Encode(winner)
		packed, err := comp.Compress(encoded)
		if err != nil {
			return nil, fmt.Errorf("sstable: compress entry for %q: %w", cur.Key, err)
		}
		n, err := writer.Write(packed)
		if err != nil {
			return nil, fmt.Errorf("sstable: write entry for %q: %w", cur.Key, err)
		}
		entries = append(entries, indexEntry{Key: cur.Key, Segment: Segment{Offset: offset, Length: uint64(n)}})
		offset += uint64(n)
	}

	if err := chestFile.Sync(); err != nil {
		return nil, fmt.Errorf("sstable: sync chest file: %w", err)
	}

	var checksum [32]byte
	copy(checksum[:], hasher.Sum(nil))

	sst := &SSTable{dir: dir, id: id, entries: entries, compression: algo, checksum: checksum}
	if err := sst.writeIndex(); err != nil {
		return nil, err
	}
	return sst, nil
}

func (s *SSTable) writeIndex() error {
	f, err := os.Create(indexPath(s.dir, s.id))
	if err != nil {
		return fmt.Errorf("sstable: create index file: %w", err)
	}
	defer f.Close()

	buf := new(bytes.Buffer)
	buf.WriteByte(byte(s.compression))
	buf.Write(s.checksum[:])

	var numBuf [4]byte
	binary.BigEndian.PutUint32(numBuf[:], uint32(len(s.entries)))
	buf.Write(numBuf[:])

	for _, e := range s.entries {
		var keyLen [4]byte
		binary.BigEndian.PutUint32(keyLen[:], uint32(len(e.Key)))
		buf.Write(keyLen[:])
		buf.WriteString(e.Key)

		var seg [16]byte
		binary.BigEndian.PutUint64(seg[0:8], e.Segment.Offset)
		binary.BigEndian.PutUint64(seg[8:16], e.Segment.Length)
		buf.Write(seg[:])
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("sstable: write index file: %w", err)
	}
	return f.Sync()
}

// Open rehydrates an SSTable handle by reading only its index file, as
// required at engine reopen time — the data file is checked for existence
// (a missing "<id>.chest" is a fatal inconsistency) but not read.
func Open(dir, id string) (*SSTable, error) {
	data, err := os.ReadFile(indexPath(dir, id))
	if err != nil {
		return nil, fmt.Errorf("sstable: read index file: %w", err)
	}
	if _, err := os.Stat(chestPath(dir, id)); err != nil {
		return nil, fmt.Errorf("sstable: %q has an index but no chest file: %w", id, err)
	}

	if len(data) < 1+32+4 {
		return nil, fmt.Errorf("sstable: truncated index header for %q", id)
	}
	algo := compression.Algorithm(data[0])
	var checksum [32]byte
	copy(checksum[:], data[1:33])
	numEntries := binary.BigEndian.Uint32(data[33:37])
	rest := data[37:]

	entries := make([]indexEntry, 0, numEntries)
	for i := uint32(0); i < numEntries; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("sstable: truncated index entry in %q", id)
		}
		keyLen := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < keyLen+16 {
			return nil, fmt.Errorf("sstable: truncated index entry in %q", id)
		}
		key := string(rest[:keyLen])
		rest = rest[keyLen:]
		offset := binary.BigEndian.Uint64(rest[0:8])
		length := binary.BigEndian.Uint64(rest[8:16])
		rest = rest[16:]
		entries = append(entries, indexEntry{Key: key, Segment: Segment{Offset: offset, Length: length}})
	}

	return &SSTable{dir: dir, id: id, entries: entries, compression: algo, checksum: checksum}, nil
}

// Keys returns every key this run's index holds, in ascending order — used
// at engine startup to repopulate the membership filter.
func (s *SSTable) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// verify checks the chest file's BLAKE2b-256 checksum against what was
// recorded at build time. Runs at most once per process per SSTable
// handle; a corrupt data file is a hard error from then on.
func (s *SSTable) verify() error {
	s.verifyOnce.Do(func() {
		f, err := os.Open(chestPath(s.dir, s.id))
		if err != nil {
			s.verifyErr = fmt.Errorf("sstable: open chest file for verification: %w", err)
			return
		}
		defer f.Close()

		hasher, err := blake2b.New256(nil)
		if err != nil {
			s.verifyErr = err
			return
		}
		if _, err := io.Copy(hasher, f); err != nil {
			s.verifyErr = fmt.Errorf("sstable: read chest file for verification: %w", err)
			return
		}
		var got [32]byte
		copy(got[:], hasher.Sum(nil))
		if got != s.checksum {
			s.verifyErr = fmt.Errorf("sstable: chest file %q failed checksum verification", s.id)
		}
	})
	return s.verifyErr
}

// Get performs a point read. A Tombstone value is still reported as a hit
// at this layer; the engine translates it to "absent" further up.
func (s *SSTable) Get(key string) (value.TimestampedValue, bool, error) {
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Key >= key })
	if idx == len(s.entries) || s.entries[idx].Key != key {
		return value.TimestampedValue{}, false, nil
	}
	if err := s.verify(); err != nil {
		return value.TimestampedValue{}, false, err
	}

	seg := s.entries[idx].Segment
	f, err := os.Open(chestPath(s.dir, s.id))
	if err != nil {
		return value.TimestampedValue{}, false, fmt.Errorf("sstable: open chest file: %w", err)
	}
	defer f.Close()

	packed := make([]byte, seg.Length)
	if _, err := f.ReadAt(packed, int64(seg.Offset)); err != nil {
		return value.TimestampedValue{}, false, fmt.Errorf("sstable: read segment for %q: %w", key, err)
	}

	comp, err := compression.New(s.compression)
	if err != nil {
		return value.TimestampedValue{}, false, err
	}
	raw, err := comp.Decompress(packed)
	if err != nil {
		return value.TimestampedValue{}, false, fmt.Errorf("sstable: decompress entry for %q: %w", key, err)
	}
	tv, err := value.Decode(raw)
	if err != nil {
		return value.TimestampedValue{}, false, fmt.Errorf("sstable: decode entry for %q: %w", key, err)
	}
	return tv, true, nil
}

// Iterator reads every entry from this run in ascending key order,
// resolving each index segment against the data file lazily.
func (s *SSTable) Iterator() (*Iterator, error) {
	if err := s.verify(); err != nil {
		return nil, err
	}
	f, err := os.Open(chestPath(s.dir, s.id))
	if err != nil {
		return nil, fmt.Errorf("sstable: open chest file: %w", err)
	}
	comp, err := compression.New(s.compression)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Iterator{sst: s, file: f, comp: comp}, nil
}

// Iterator walks an SSTable's entries in ascending key order.
type Iterator struct {
	sst     *SSTable
	file    *os.File
	comp    compression.Compressor
	pos     int
	current OrderedEntry
}

// Next advances the iterator. Returns false once entries are exhausted.
func (it *Iterator) Next() (bool, error) {
	if it.pos >= len(it.sst.entries) {
		return false, nil
	}
	e := it.sst.entries[it.pos]
	it.pos++

	packed := make([]byte, e.Segment.Length)
	if _, err := it.file.ReadAt(packed, int64(e.Segment.Offset)); err != nil {
		return false, fmt.Errorf("sstable: read segment for %q: %w", e.Key, err)
	}
	raw, err := it.comp.Decompress(packed)
	if err != nil {
		return false, fmt.Errorf("sstable: decompress entry for %q: %w", e.Key, err)
	}
	tv, err := value.Decode(raw)
	if err != nil {
		return false, fmt.Errorf("sstable: decode entry for %q: %w", e.Key, err)
	}
	it.current = OrderedEntry{Key: e.Key, Value: tv}
	return true, nil
}

// Entry returns the entry most recently produced by Next.
func (it *Iterator) Entry() OrderedEntry { return it.current }

// Close releases the iterator's open file handle.
func (it *Iterator) Close() error { return it.file.Close() }

// Merge performs a k-way (here, two-way) ordered merge of s and other,
// writing the result as a new SSTable named newID. The caller must supply
// s as the older run and other as the newer one: when a key ties in
// timestamp across both runs, Build's "prefer the second occurrence" rule
// then preserves newest-wins. The caller is responsible for deleting both
// inputs once the merged output is installed.
func (s *SSTable) Merge(other *SSTable, newID string, algo compression.Algorithm) (*SSTable, error) {
	left, err := s.Iterator()
	if err != nil {
		return nil, fmt.Errorf("sstable: merge: open older run: %w", err)
	}
	defer left.Close()
	right, err := other.Iterator()
	if err != nil {
		return nil, fmt.Errorf("sstable: merge: open newer run: %w", err)
	}
	defer right.Close()

	var stream []OrderedEntry
	leftOK, err := left.Next()
	if err != nil {
		return nil, err
	}
	rightOK, err := right.Next()
	if err != nil {
		return nil, err
	}

	for leftOK || rightOK {
		switch {
		case leftOK && (!rightOK || left.Entry().Key < right.Entry().Key):
			stream = append(stream, left.Entry())
			leftOK, err = left.Next()
		case rightOK && (!leftOK || right.Entry().Key < left.Entry().Key):
			stream = append(stream, right.Entry())
			rightOK, err = right.Next()
		default:
			// equal keys: emit older first, then newer, so Build's
			// "prefer the second occurrence" resolves newest-wins.
			stream = append(stream, left.Entry(), right.Entry())
			leftOK, err = left.Next()
			if err == nil {
				rightOK, err = right.Next()
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return Build(s.dir, newID, algo, stream)
}

// Delete removes both files backing this run. Not idempotent: callers
// must not call it twice.
func (s *SSTable) Delete() error {
	if err := os.Remove(chestPath(s.dir, s.id)); err != nil {
		return fmt.Errorf("sstable: remove chest file: %w", err)
	}
	if err := os.Remove(indexPath(s.dir, s.id)); err != nil {
		return fmt.Errorf("sstable: remove index file: %w", err)
	}
	return nil
}
