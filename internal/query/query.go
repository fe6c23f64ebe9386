// Package query evaluates parsed statements against the engine. The
// statement shapes are the small closed set spec'd for the store:
// literal, get, set, delete. Parsing the wire grammar itself lives at
// the server boundary (pkg/server); this package only evaluates an
// already-parsed Statement tree, depth-first, against anything shaped
// like an Engine.
package query

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/mnohosten/siltchest/internal/value"
)

// Engine is the capability set the query runtime needs. internal/engine.Engine
// satisfies it directly.
type Engine interface {
	Get(key string) (value.Value, bool, error)
	Set(key string, v value.Value) error
	Delete(key string) error
}

// Statement is the evaluable unit of the runtime: Literal, Get, Set, or
// Delete. Evaluation is depth-first and referentially transparent for
// Literal.
type Statement interface {
	Eval(e Engine) (value.Value, error)
}

// Literal returns its wrapped value unchanged.
type Literal struct {
	Value value.Value
}

// Eval implements Statement.
func (l Literal) Eval(Engine) (value.Value, error) { return l.Value, nil }

// Get reads a key from the engine. A miss maps to Null, never to an error.
type Get struct {
	Key string
}

// Eval implements Statement.
func (g Get) Eval(e Engine) (value.Value, error) {
	v, ok, err := e.Get(normalizeKey(g.Key))
	if err != nil {
		return value.Value{}, fmt.Errorf("query: get %q: %w", g.Key, err)
	}
	if !ok {
		return value.Null(), nil
	}
	return v, nil
}

// Set evaluates Expr, then writes the result under Key. Always returns Null.
type Set struct {
	Key  string
	Expr Statement
}

// Eval implements Statement.
func (s Set) Eval(e Engine) (value.Value, error) {
	v, err := s.Expr.Eval(e)
	if err != nil {
		return value.Value{}, err
	}
	if err := e.Set(normalizeKey(s.Key), v); err != nil {
		return value.Value{}, fmt.Errorf("query: set %q: %w", s.Key, err)
	}
	return value.Null(), nil
}

// Delete writes a tombstone for Key. Always returns Null.
type Delete struct {
	Key string
}

// Eval implements Statement.
func (d Delete) Eval(e Engine) (value.Value, error) {
	if err := e.Delete(normalizeKey(d.Key)); err != nil {
		return value.Value{}, fmt.Errorf("query: delete %q: %w", d.Key, err)
	}
	return value.Null(), nil
}

// normalizeKey applies NFC normalization so two byte-distinct but
// canonically equal client keys (e.g. a precomposed vs. combining-mark
// spelling of the same text) collide on the same engine key.
func normalizeKey(key string) string {
	return norm.NFC.String(key)
}
