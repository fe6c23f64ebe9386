package value

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []TimestampedValue{
		{Timestamp: NewTimestamp(1), Value: Integer(42)},
		{Timestamp: NewTimestamp(2), Value: Integer(-7)},
		{Timestamp: NewTimestamp(3), Value: Float(3.14159)},
		{Timestamp: NewTimestamp(4), Value: String("hello world")},
		{Timestamp: NewTimestamp(5), Value: String("")},
		{Timestamp: NewTimestamp(6), Value: Boolean(true)},
		{Timestamp: NewTimestamp(7), Value: Boolean(false)},
		{Timestamp: NewTimestamp(8), Value: Null()},
		{Timestamp: NewTimestamp(9), Value: Tombstone()},
	}

	for _, tv := range cases {
		encoded := Encode(tv)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode %+v: %v", tv, err)
		}
		if decoded != tv {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, tv)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding truncated entry")
	}
}

func TestTimestampOrdering(t *testing.T) {
	a := NewTimestamp(100)
	b := NewTimestamp(200)

	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected b not < a")
	}
	if !a.Equal(NewTimestamp(100)) {
		t.Fatal("expected equal timestamps to compare equal")
	}

	hi := Timestamp{Hi: 1, Lo: 0}
	if !a.Less(hi) {
		t.Fatal("expected any 64-bit timestamp to be less than a nonzero high word")
	}
}

func TestEncodeDecodeValueRoundTrip(t *testing.T) {
	cases := []Value{
		Integer(42),
		Float(2.71828),
		String("response payload"),
		Boolean(true),
		Null(),
	}
	for _, v := range cases {
		encoded := EncodeValue(v)
		decoded, err := DecodeValue(encoded)
		if err != nil {
			t.Fatalf("decode %+v: %v", v, err)
		}
		if decoded != v {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, v)
		}
	}
}

func TestDecodeValueTruncated(t *testing.T) {
	if _, err := DecodeValue(nil); err == nil {
		t.Fatal("expected error decoding empty value")
	}
}

func TestTombstoneAndNullPredicates(t *testing.T) {
	if !Tombstone().IsTombstone() {
		t.Fatal("expected IsTombstone true")
	}
	if Tombstone().IsNull() {
		t.Fatal("tombstone should not report IsNull")
	}
	if !Null().IsNull() {
		t.Fatal("expected IsNull true")
	}
}
