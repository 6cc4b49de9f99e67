package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"
)

// LiteralKey is the canonical identity of a literal: the JSON text of
// [value, datatype, language] and its 128-bit xxhash3 digest.
// The text is kept so that hash collisions can be told apart.
type LiteralKey struct {
	Hash xxh3.Uint128
	Text string
}

// LiteralEncoder computes literal identities for the intern table
type LiteralEncoder struct{}

func NewLiteralEncoder() *LiteralEncoder {
	return &LiteralEncoder{}
}

// EncodeLiteral returns the identity of a literal. An empty datatype and a
// nil language encode as null; an empty language encodes as "".
// Text direction is not part of the key.
func (e *LiteralEncoder) EncodeLiteral(value any, datatype string, language *string) (LiteralKey, error) {
	var lang any
	if language != nil {
		lang = *language
	}
	key := []any{value, nullable(datatype), lang}
	text, err := CanonicalJSON(key)
	if err != nil {
		return LiteralKey{}, fmt.Errorf("failed to encode literal key: %w", err)
	}
	return LiteralKey{Hash: xxh3.Hash128(text), Text: string(text)}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CanonicalJSON encodes a tree value as compact JSON without HTML escaping.
// Ordered objects keep their insertion order; plain maps sort their keys.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SameValue reports whether two tree values have the same canonical JSON
// encoding. Values that cannot be encoded are never equal.
func SameValue(a, b any) bool {
	left, err := CanonicalJSON(a)
	if err != nil {
		return false
	}
	right, err := CanonicalJSON(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}
