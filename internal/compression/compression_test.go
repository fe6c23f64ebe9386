package compression

import (
	"bytes"
	"testing"
)

func TestNoneRoundTrip(t *testing.T) {
	c, err := New(AlgorithmNone)
	if err != nil {
		t.Fatal(err)
	}
	roundTrip(t, c, []byte("hello world"))
}

func TestSnappyRoundTrip(t *testing.T) {
	c, err := New(AlgorithmSnappy)
	if err != nil {
		t.Fatal(err)
	}
	roundTrip(t, c, bytes.Repeat([]byte("abcdefgh"), 50))
}

func TestZstdRoundTrip(t *testing.T) {
	c, err := New(AlgorithmZstd)
	if err != nil {
		t.Fatal(err)
	}
	roundTrip(t, c, bytes.Repeat([]byte("zstd payload "), 100))
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := New(Algorithm(99)); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}

func roundTrip(t *testing.T, c Compressor, data []byte) {
	t.Helper()
	packed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	unpacked, err := c.Decompress(packed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(data, unpacked) {
		t.Fatalf("round trip mismatch: got %q, want %q", unpacked, data)
	}
}
