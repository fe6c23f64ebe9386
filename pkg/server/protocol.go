package server

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/mnohosten/siltchest/internal/query"
	"github.com/mnohosten/siltchest/internal/value"
)

// parseStatement turns one trimmed, non-empty request line into a
// query.Statement. The grammar itself is out of the store's core scope;
// this is the minimal literal/get/set/delete surface spec'd for the wire
// protocol.
func parseStatement(line string) (query.Statement, error) {
	cmd, rest := splitFirst(line)

	switch cmd {
	case "get":
		if rest == "" {
			return nil, fmt.Errorf("get: missing key")
		}
		return query.Get{Key: rest}, nil

	case "delete":
		if rest == "" {
			return nil, fmt.Errorf("delete: missing key")
		}
		return query.Delete{Key: rest}, nil

	case "set":
		key, literalTok := splitFirst(rest)
		if key == "" || literalTok == "" {
			return nil, fmt.Errorf("set: expected <key> <literal>")
		}
		v, err := parseLiteral(literalTok)
		if err != nil {
			return nil, fmt.Errorf("set: %w", err)
		}
		return query.Set{Key: key, Expr: query.Literal{Value: v}}, nil

	default:
		v, err := parseLiteral(line)
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		return query.Literal{Value: v}, nil
	}
}

func splitFirst(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

func parseLiteral(tok string) (value.Value, error) {
	switch tok {
	case "null":
		return value.Null(), nil
	case "true":
		return value.Boolean(true), nil
	case "false":
		return value.Boolean(false), nil
	}

	if len(tok) >= 2 && strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) {
		unquoted, err := strconv.Unquote(tok)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid quoted string %q: %w", tok, err)
		}
		return value.String(unquoted), nil
	}

	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return value.Integer(n), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return value.Float(f), nil
	}

	return value.Value{}, fmt.Errorf("unrecognized literal %q", tok)
}

// Response tags for the wire format: a self-describing binary blob
// (either an Err or a Value), followed by the caller's newline.
const (
	responseTagErr byte = iota
	responseTagValue
)

func encodeResponse(v value.Value, evalErr error) []byte {
	if evalErr != nil {
		msg := evalErr.Error()
		buf := make([]byte, 0, 5+len(msg))
		buf = append(buf, responseTagErr)
		var lb [4]byte
		binary.BigEndian.PutUint32(lb[:], uint32(len(msg)))
		buf = append(buf, lb[:]...)
		buf = append(buf, msg...)
		return buf
	}

	buf := make([]byte, 0, 17)
	buf = append(buf, responseTagValue)
	return append(buf, value.EncodeValue(v)...)
}
