// Package bloomfilter provides the membership filter the engine consults
// before touching disk. The default implementation is a classic Bloom
// filter; the exported Filter interface is the capability set an engine
// actually needs ({Insert, Contains}), following the teacher repo's
// pkg/lsm/bloom.go shape but hashing with a real seedable MurmurHash
// (github.com/spaolacci/murmur3, the hash used by gholt-valuestore)
// instead of hand-rolled double hashing over fnv.
package bloomfilter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is the membership capability the Engine depends on. Contains must
// never report false for a key that was inserted; false positives are
// allowed.
type Filter interface {
	Insert(key string)
	Contains(key string) bool
}

// Bloom is a fixed-size Bloom filter sized from an expected capacity and a
// target false-positive rate.
type Bloom struct {
	bits      []byte // byte-backed bit array, length = byteLen
	totalBits uint64 // byteLen * 8, the modulus every hash is reduced into
	numHashes int
}

// New sizes a Bloom filter for n expected entries at false-positive rate p.
//
//	m = ceil(-n·ln(p) / (ln 2)^2)   (bits)
//	k = ceil((m/n)·ln 2)            (hash functions)
//
// m is then rounded up to a whole number of bytes; the bit-position
// computation reduces every hash modulo that rounded bit count (byteLen*8),
// not modulo the byte count itself. Reducing modulo the byte count and only
// then multiplying by 8 — an easy transposition to make by hand — collapses
// the usable range to the first few bits of the array and defeats the
// filter; every hash here is folded into the full bit range first.
func New(n int, p float64) *Bloom {
	if n < 1 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = 0.01
	}

	bitsTarget := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if bitsTarget < 8 {
		bitsTarget = 8
	}
	k := int(math.Ceil((bitsTarget / float64(n)) * math.Ln2))
	if k < 1 {
		k = 1
	}

	byteLen := (uint64(bitsTarget) + 7) / 8
	return &Bloom{
		bits:      make([]byte, byteLen),
		totalBits: byteLen * 8,
		numHashes: k,
	}
}

// Insert adds key to the filter. Never removes: a tombstone write still
// inserts its key so later reads fall through to the tombstone itself
// rather than being short-circuited as "definitely absent".
func (b *Bloom) Insert(key string) {
	for i := 0; i < b.numHashes; i++ {
		pos := b.bitPosition(key, i)
		byteIndex := pos / 8
		bitOffset := pos % 8
		b.bits[byteIndex] |= 1 << bitOffset
	}
}

// Contains reports whether key might be present. No false negatives.
func (b *Bloom) Contains(key string) bool {
	for i := 0; i < b.numHashes; i++ {
		pos := b.bitPosition(key, i)
		byteIndex := pos / 8
		bitOffset := pos % 8
		if b.bits[byteIndex]&(1<<bitOffset) == 0 {
			return false
		}
	}
	return true
}

func (b *Bloom) bitPosition(key string, hashIndex int) uint64 {
	h := murmur3.Sum32WithSeed([]byte(key), uint32(hashIndex))
	return uint64(h) % b.totalBits
}

// Marshal serializes the filter to a self-describing blob:
// [4-byte totalBits][4-byte numHashes][bits...].
func (b *Bloom) Marshal() []byte {
	out := make([]byte, 8+len(b.bits))
	binary.BigEndian.PutUint32(out[0:4], uint32(b.totalBits))
	binary.BigEndian.PutUint32(out[4:8], uint32(b.numHashes))
	copy(out[8:], b.bits)
	return out
}

// Unmarshal parses the blob produced by Marshal.
func Unmarshal(data []byte) (*Bloom, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("bloomfilter: truncated filter blob (%d bytes)", len(data))
	}
	totalBits := uint64(binary.BigEndian.Uint32(data[0:4]))
	numHashes := int(binary.BigEndian.Uint32(data[4:8]))
	bits := make([]byte, len(data)-8)
	copy(bits, data[8:])
	return &Bloom{bits: bits, totalBits: totalBits, numHashes: numHashes}, nil
}
