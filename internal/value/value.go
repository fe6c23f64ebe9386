// Package value defines the scalar data model stored by the engine: a
// tagged value plus the nanosecond-timestamp envelope that makes merges
// deterministic. The encoding is a small self-describing binary blob in
// the style of the teacher repo's BSON encoder (pkg/document/bson.go):
// one type byte followed by a type-specific payload.
package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type tags a Value's variant.
type Type byte

const (
	TypeInteger Type = iota + 1
	TypeFloat
	TypeString
	TypeBoolean
	TypeNull
	TypeTombstone
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeNull:
		return "null"
	case TypeTombstone:
		return "tombstone"
	default:
		return "invalid"
	}
}

// Value is a sum type over {Integer, Float, String, Boolean, Null, Tombstone}.
// Null is the user-visible "absent" literal; Tombstone is the internal
// deletion marker and is never handed back to a caller.
type Value struct {
	Type Type
	Int  int64
	Flt  float64
	Str  string
	Bool bool
}

func Integer(v int64) Value   { return Value{Type: TypeInteger, Int: v} }
func Float(v float64) Value   { return Value{Type: TypeFloat, Flt: v} }
func String(v string) Value   { return Value{Type: TypeString, Str: v} }
func Boolean(v bool) Value    { return Value{Type: TypeBoolean, Bool: v} }
func Null() Value             { return Value{Type: TypeNull} }
func Tombstone() Value        { return Value{Type: TypeTombstone} }
func (v Value) IsTombstone() bool { return v.Type == TypeTombstone }
func (v Value) IsNull() bool      { return v.Type == TypeNull }

// Timestamp is a 128-bit nanosecond counter captured at write time. Go has
// no native u128; Hi/Lo form one big-endian unsigned integer so the wire
// format has headroom beyond a 64-bit wall clock without being a breaking
// change later.
type Timestamp struct {
	Hi uint64
	Lo uint64
}

// NewTimestamp builds a Timestamp from a 64-bit nanosecond count (what
// every real clock source on this target actually produces).
func NewTimestamp(nanos int64) Timestamp {
	return Timestamp{Hi: 0, Lo: uint64(nanos)}
}

// Less reports whether t is strictly older than other.
func (t Timestamp) Less(other Timestamp) bool {
	if t.Hi != other.Hi {
		return t.Hi < other.Hi
	}
	return t.Lo < other.Lo
}

// Equal reports whether t and other mark the same instant.
func (t Timestamp) Equal(other Timestamp) bool {
	return t.Hi == other.Hi && t.Lo == other.Lo
}

// TimestampedValue pairs a Value with the timestamp that is the sole
// tiebreaker when the same key appears in two SSTables during a merge.
type TimestampedValue struct {
	Timestamp Timestamp
	Value     Value
}

// Encode serializes a TimestampedValue to its self-describing binary form:
// [8 bytes Hi][8 bytes Lo][1 byte type][payload].
func Encode(tv TimestampedValue) []byte {
	var ts [16]byte
	binary.BigEndian.PutUint64(ts[0:8], tv.Timestamp.Hi)
	binary.BigEndian.PutUint64(ts[8:16], tv.Timestamp.Lo)
	buf := make([]byte, 0, 32)
	buf = append(buf, ts[:]...)
	return appendValue(buf, tv.Value)
}

// EncodeValue serializes a bare Value (no timestamp envelope) to its
// self-describing binary form: [1 byte type][payload]. Used for values
// that never carry a write-time timestamp, such as a query-runtime
// result sent back over the wire.
func EncodeValue(v Value) []byte {
	return appendValue(make([]byte, 0, 16), v)
}

func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Type))
	switch v.Type {
	case TypeInteger:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int))
		buf = append(buf, b[:]...)
	case TypeFloat:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Flt))
		buf = append(buf, b[:]...)
	case TypeString:
		var lb [4]byte
		binary.BigEndian.PutUint32(lb[:], uint32(len(v.Str)))
		buf = append(buf, lb[:]...)
		buf = append(buf, v.Str...)
	case TypeBoolean:
		if v.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case TypeNull, TypeTombstone:
		// no payload
	}
	return buf
}

// Decode parses the binary form produced by Encode. Failure is treated as
// a hard error at the SSTable boundary: the caller assumes the file is
// intact and the bytes were produced by Encode.
func Decode(data []byte) (TimestampedValue, error) {
	if len(data) < 17 {
		return TimestampedValue{}, fmt.Errorf("value: truncated entry (%d bytes)", len(data))
	}
	ts := Timestamp{
		Hi: binary.BigEndian.Uint64(data[0:8]),
		Lo: binary.BigEndian.Uint64(data[8:16]),
	}
	v, err := DecodeValue(data[16:])
	if err != nil {
		return TimestampedValue{}, err
	}
	return TimestampedValue{Timestamp: ts, Value: v}, nil
}

// DecodeValue parses the binary form produced by EncodeValue:
// [1 byte type][payload].
func DecodeValue(data []byte) (Value, error) {
	if len(data) < 1 {
		return Value{}, fmt.Errorf("value: truncated type tag")
	}
	typ := Type(data[0])
	rest := data[1:]

	switch typ {
	case TypeInteger:
		if len(rest) < 8 {
			return Value{}, fmt.Errorf("value: truncated integer payload")
		}
		return Integer(int64(binary.BigEndian.Uint64(rest[:8]))), nil
	case TypeFloat:
		if len(rest) < 8 {
			return Value{}, fmt.Errorf("value: truncated float payload")
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))), nil
	case TypeString:
		if len(rest) < 4 {
			return Value{}, fmt.Errorf("value: truncated string length")
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return Value{}, fmt.Errorf("value: truncated string payload")
		}
		return String(string(rest[:n])), nil
	case TypeBoolean:
		if len(rest) < 1 {
			return Value{}, fmt.Errorf("value: truncated boolean payload")
		}
		return Boolean(rest[0] != 0), nil
	case TypeNull:
		return Null(), nil
	case TypeTombstone:
		return Tombstone(), nil
	default:
		return Value{}, fmt.Errorf("value: unknown type tag %d", typ)
	}
}
