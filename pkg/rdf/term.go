package rdf

import (
	"fmt"
	"strings"
)

// ValueKind represents the kind of a graph value
type ValueKind byte

const (
	ValueNode ValueKind = iota + 1
	ValueLiteral
	ValueList
)

func (k ValueKind) String() string {
	switch k {
	case ValueNode:
		return "node"
	case ValueLiteral:
		return "literal"
	case ValueList:
		return "list"
	default:
		return "invalid"
	}
}

// NodeID is a handle to a node owned by a graph.
// Handles are only meaningful for the graph that issued them.
type NodeID int32

// LiteralID is a handle to an interned literal owned by a graph.
type LiteralID int32

// Value is one entry in a node's value list: a node reference, a literal,
// or an ordered list of values.
type Value struct {
	Kind    ValueKind
	Node    NodeID
	Literal LiteralID
	Items   []Value
	// Plain marks a list that came from a bare nested array rather than an
	// @list object. It renders as a JSON array.
	Plain bool
}

func NodeValue(id NodeID) Value {
	return Value{Kind: ValueNode, Node: id}
}

func LiteralValue(id LiteralID) Value {
	return Value{Kind: ValueLiteral, Literal: id}
}

// NewList creates an @list value
func NewList(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: ValueList, Items: items}
}

// NewPlainList creates a list value for a bare nested array
func NewPlainList(items []Value) Value {
	v := NewList(items)
	v.Plain = true
	return v
}

// IsZero reports whether the value was never assigned
func (v Value) IsZero() bool {
	return v.Kind == 0
}

// Same reports identity equality. Nodes and literals are identical when their
// handles match; lists are never identical to anything, including themselves
// as stored in another slot.
func (v Value) Same(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueNode:
		return v.Node == other.Node
	case ValueLiteral:
		return v.Literal == other.Literal
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueNode:
		return fmt.Sprintf("node#%d", v.Node)
	case ValueLiteral:
		return fmt.Sprintf("literal#%d", v.Literal)
	case ValueList:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		if v.Plain {
			return "[" + strings.Join(parts, " ") + "]"
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return "<invalid>"
	}
}

// Literal represents a scalar or raw JSON value with optional datatype,
// language and text direction. A nil Language or Direction is absent; an
// empty one is present and distinct from absent.
type Literal struct {
	Value     any
	Type      string // expanded datatype IRI
	Language  *string
	Direction *string
}

// StringPtr returns a pointer to s, for the optional literal fields
func StringPtr(s string) *string {
	return &s
}

// Lang returns the language tag, or "" when there is none
func (l *Literal) Lang() string {
	if l.Language == nil {
		return ""
	}
	return *l.Language
}

// Dir returns the text direction, or "" when there is none
func (l *Literal) Dir() string {
	if l.Direction == nil {
		return ""
	}
	return *l.Direction
}

// IsPlain reports whether the literal carries no datatype, language or direction
func (l *Literal) IsPlain() bool {
	return l.Type == "" && l.Language == nil && l.Direction == nil
}

// Object renders the literal in its structured tree form.
func (l *Literal) Object() *Object {
	rv := NewObject()
	rv.Set(KeywordValue, CloneTree(l.Value))
	if l.Language != nil {
		rv.Set(KeywordLanguage, *l.Language)
	}
	if l.Direction != nil {
		rv.Set(KeywordDirection, *l.Direction)
	}
	if l.Type != "" {
		rv.Set(KeywordType, l.Type)
	}
	return rv
}

// Tree renders the literal as a tree value. In raw mode a plain literal with
// a primitive value becomes the bare scalar.
func (l *Literal) Tree(raw bool) any {
	if raw && l.IsPlain() && IsPrimitive(l.Value) {
		return CloneTree(l.Value)
	}
	return l.Object()
}

func (l *Literal) String() string {
	result := fmt.Sprintf("%#v", l.Value)
	if s, ok := l.Value.(string); ok {
		result = fmt.Sprintf("%q", s)
	}
	if l.Language != nil {
		result += "@" + *l.Language
		if l.Direction != nil {
			result += "--" + *l.Direction
		}
	} else if l.Type != "" {
		result += "^^<" + l.Type + ">"
	}
	return result
}

// Triple represents an extracted (subject, predicate, object) fact.
// Subject and Predicate are IRIs or "_:" blank labels; Object is a tree value:
// an {"@id": ...} reference, a literal object, or an @list object.
type Triple struct {
	Subject   string
	Predicate string
	Object    any
}

func NewTriple(subject, predicate string, object any) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", formatRef(t.Subject), formatRef(t.Predicate), formatObject(t.Object))
}

func formatRef(ref string) string {
	if IsBlankLabel(ref) {
		return ref
	}
	return "<" + ref + ">"
}

func formatObject(obj any) string {
	if id, ok := ReferenceID(obj); ok {
		return formatRef(id)
	}
	text, err := MarshalTree(obj)
	if err != nil {
		return fmt.Sprintf("%v", obj)
	}
	return string(text)
}
