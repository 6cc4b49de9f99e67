package rdf

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered tree object. Input documents may also use
// plain map[string]any objects; output trees always use Object so that key
// order survives JSON and YAML encoding.
type Object = orderedmap.OrderedMap[string, any]

// NewObject creates an empty tree object
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Field is one key/value pair of a tree object
type Field struct {
	Key   string
	Value any
}

// Fields returns the pairs of a tree object in iteration order. Plain maps
// iterate in sorted key order. The second result is false for non-objects.
func Fields(v any) ([]Field, bool) {
	switch obj := v.(type) {
	case *Object:
		if obj == nil {
			return nil, false
		}
		fields := make([]Field, 0, obj.Len())
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			fields = append(fields, Field{Key: pair.Key, Value: pair.Value})
		}
		return fields, true
	case map[string]any:
		if obj == nil {
			return nil, false
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = Field{Key: k, Value: obj[k]}
		}
		return fields, true
	default:
		return nil, false
	}
}

// IsObject reports whether v is a tree object
func IsObject(v any) bool {
	switch obj := v.(type) {
	case *Object:
		return obj != nil
	case map[string]any:
		return obj != nil
	default:
		return false
	}
}

// Lookup returns the value stored under key in a tree object
func Lookup(v any, key string) (any, bool) {
	switch obj := v.(type) {
	case *Object:
		if obj == nil {
			return nil, false
		}
		return obj.Get(key)
	case map[string]any:
		val, ok := obj[key]
		return val, ok
	default:
		return nil, false
	}
}

// IsPrimitive reports whether v is neither an object nor an array
func IsPrimitive(v any) bool {
	switch v.(type) {
	case []any, *Object, map[string]any:
		return false
	default:
		return true
	}
}

type mapIdentity uintptr

// Identity returns a comparable key identifying a tree object by reference.
func Identity(v any) (any, bool) {
	switch obj := v.(type) {
	case *Object:
		if obj == nil {
			return nil, false
		}
		return obj, true
	case map[string]any:
		if obj == nil {
			return nil, false
		}
		return mapIdentity(reflect.ValueOf(obj).Pointer()), true
	default:
		return nil, false
	}
}

// CloneTree returns a detached deep copy of a tree value. Plain maps are
// converted to ordered objects.
func CloneTree(v any) any {
	switch t := v.(type) {
	case []any:
		rv := make([]any, len(t))
		for i, item := range t {
			rv[i] = CloneTree(item)
		}
		return rv
	case *Object, map[string]any:
		fields, ok := Fields(t)
		if !ok {
			return nil
		}
		rv := NewObject()
		for _, f := range fields {
			rv.Set(f.Key, CloneTree(f.Value))
		}
		return rv
	default:
		return t
	}
}

// ReferenceID returns the identifier of an identifier-only reference object
func ReferenceID(v any) (string, bool) {
	fields, ok := Fields(v)
	if !ok || len(fields) != 1 || fields[0].Key != KeywordID {
		return "", false
	}
	id, ok := fields[0].Value.(string)
	return id, ok
}

// NewReference creates an identifier-only reference object
func NewReference(id string) *Object {
	rv := NewObject()
	rv.Set(KeywordID, id)
	return rv
}

// MarshalTree encodes a tree value as compact JSON without HTML escaping
func MarshalTree(v any) ([]byte, error) {
	return MarshalTreeIndent(v, "")
}

// MarshalTreeIndent encodes a tree value as JSON with the given indentation
func MarshalTreeIndent(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
