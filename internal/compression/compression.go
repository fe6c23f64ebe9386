// Package compression wraps the per-entry compression codecs an SSTable
// may use for its packed values. Adapted and trimmed from the teacher
// repo's pkg/compression/compression.go: the gzip and zlib paths are
// dropped (the spec's domain is store-local value packing, not a
// network-transfer format they'd make sense for) but the Snappy/Zstd
// codecs from github.com/klauspost/compress are kept exactly as the
// teacher wires them.
package compression

import (
	"fmt"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Algorithm identifies a per-entry compression codec. It is stored as a
// single byte in an SSTable's index file.
type Algorithm byte

const (
	// AlgorithmNone stores values uncompressed.
	AlgorithmNone Algorithm = iota
	// AlgorithmSnappy is fast, moderate-ratio compression.
	AlgorithmSnappy
	// AlgorithmZstd is slower but denser; the default for new runs.
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Compressor compresses and decompresses entry payloads.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// New returns a Compressor for algo.
func New(algo Algorithm) (Compressor, error) {
	switch algo {
	case AlgorithmNone:
		return noneCompressor{}, nil
	case AlgorithmSnappy:
		return snappyCompressor{}, nil
	case AlgorithmZstd:
		return newZstdCompressor()
	default:
		return nil, fmt.Errorf("compression: unsupported algorithm %d", algo)
	}
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

type snappyCompressor struct{}

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("compression: snappy decode: %w", err)
	}
	return decoded, nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("compression: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("compression: new zstd decoder: %w", err)
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

func (z *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	decoded, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("compression: zstd decode: %w", err)
	}
	return decoded, nil
}
