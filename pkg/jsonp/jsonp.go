// Package jsonp unwraps provider payloads that are JSON behind an
// anti-hijacking prefix or a JavaScript callback.
package jsonp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var prefixes = [][]byte{
	[]byte("{}&&"),
	[]byte(")]}',"),
	[]byte(")]}'"),
}

// Strip returns the JSON inside b. Plain JSON is returned unchanged.
func Strip(b []byte) []byte {
	trimmed := bytes.TrimSpace(b)

	for _, p := range prefixes {
		if bytes.HasPrefix(trimmed, p) {
			return bytes.TrimSpace(trimmed[len(p):])
		}
	}

	if inner, ok := unwrapCallback(trimmed); ok {
		return inner
	}
	return trimmed
}

// unwrapCallback handles name(...) and name(...); with a JS identifier name.
func unwrapCallback(b []byte) ([]byte, bool) {
	open := bytes.IndexByte(b, '(')
	if open <= 0 || !isIdentifier(bytes.TrimSpace(b[:open])) {
		return nil, false
	}

	end := bytes.TrimRight(b, "; \t\r\n")
	if len(end) == 0 || end[len(end)-1] != ')' || len(end)-1 <= open {
		return nil, false
	}
	return bytes.TrimSpace(end[open+1 : len(end)-1]), true
}

func isIdentifier(b []byte) bool {
	for i, c := range b {
		switch {
		case c == '_' || c == '$' || c == '.':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return len(b) > 0
}

// Decode strips b and unmarshals the result into v.
func Decode(b []byte, v any) error {
	if err := json.Unmarshal(Strip(b), v); err != nil {
		return fmt.Errorf("decode wrapped json: %w", err)
	}
	return nil
}
