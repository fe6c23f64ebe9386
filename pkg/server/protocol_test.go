package server

import (
	"testing"

	"github.com/mnohosten/siltchest/internal/query"
	"github.com/mnohosten/siltchest/internal/value"
)

func TestParseStatementGet(t *testing.T) {
	stmt, err := parseStatement("get name")
	if err != nil {
		t.Fatal(err)
	}
	g, ok := stmt.(query.Get)
	if !ok || g.Key != "name" {
		t.Fatalf("got %#v, want Get{Key: name}", stmt)
	}
}

func TestParseStatementDelete(t *testing.T) {
	stmt, err := parseStatement("delete name")
	if err != nil {
		t.Fatal(err)
	}
	d, ok := stmt.(query.Delete)
	if !ok || d.Key != "name" {
		t.Fatalf("got %#v, want Delete{Key: name}", stmt)
	}
}

func TestParseStatementSetString(t *testing.T) {
	stmt, err := parseStatement(`set name "John"`)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := stmt.(query.Set)
	if !ok || s.Key != "name" {
		t.Fatalf("got %#v, want Set{Key: name}", stmt)
	}
	lit := s.Expr.(query.Literal)
	if lit.Value.Str != "John" {
		t.Fatalf("got %q, want John", lit.Value.Str)
	}
}

func TestParseStatementSetInteger(t *testing.T) {
	stmt, err := parseStatement("set count 42")
	if err != nil {
		t.Fatal(err)
	}
	s := stmt.(query.Set)
	lit := s.Expr.(query.Literal)
	if lit.Value.Int != 42 {
		t.Fatalf("got %d, want 42", lit.Value.Int)
	}
}

func TestParseStatementBareLiteral(t *testing.T) {
	stmt, err := parseStatement("3.14")
	if err != nil {
		t.Fatal(err)
	}
	lit, ok := stmt.(query.Literal)
	if !ok || lit.Value.Flt != 3.14 {
		t.Fatalf("got %#v, want Literal{3.14}", stmt)
	}
}

func TestParseStatementMissingKeyIsError(t *testing.T) {
	if _, err := parseStatement("get"); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := parseStatement("set key"); err == nil {
		t.Fatal("expected error for missing literal")
	}
}

func TestParseLiteralBooleanAndNull(t *testing.T) {
	v, err := parseLiteral("true")
	if err != nil || !v.Bool {
		t.Fatalf("got %v err=%v, want true", v, err)
	}
	v, err = parseLiteral("null")
	if err != nil || !v.IsNull() {
		t.Fatalf("got %v err=%v, want Null", v, err)
	}
}

func TestParseLiteralUnrecognized(t *testing.T) {
	if _, err := parseLiteral("not-a-literal!"); err == nil {
		t.Fatal("expected error for unrecognized literal")
	}
}

func TestEncodeResponseValueAndErr(t *testing.T) {
	encoded := encodeResponse(value.Integer(7), nil)
	if encoded[0] != responseTagValue {
		t.Fatalf("expected value tag, got %d", encoded[0])
	}
	decoded, err := value.DecodeValue(encoded[1:])
	if err != nil || decoded.Int != 7 {
		t.Fatalf("decode: %v, got %d", err, decoded.Int)
	}

	encoded = encodeResponse(value.Value{}, errBoom())
	if encoded[0] != responseTagErr {
		t.Fatalf("expected err tag, got %d", encoded[0])
	}
}

func errBoom() error { return &testError{"boom"} }

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
