package store

import (
	"github.com/aleksaelezovic/terse/internal/encoding"
	"github.com/aleksaelezovic/terse/pkg/rdf"
	"github.com/zeebo/xxh3"
)

type internEntry struct {
	text string
	id   rdf.LiteralID
}

// literalTable interns literals by (value, datatype, language). An empty
// language is distinct from none. Two literals differing only in direction
// share one instance, and the first one stored wins.
type literalTable struct {
	encoder *encoding.LiteralEncoder
	values  []*rdf.Literal
	index   map[xxh3.Uint128][]internEntry
}

func newLiteralTable() *literalTable {
	return &literalTable{
		encoder: encoding.NewLiteralEncoder(),
		index:   make(map[xxh3.Uint128][]internEntry),
	}
}

func (t *literalTable) get(id rdf.LiteralID) *rdf.Literal {
	if id < 0 || int(id) >= len(t.values) {
		return nil
	}
	return t.values[id]
}

// lookup finds the handle of an interned literal identical to lit
func (t *literalTable) lookup(lit *rdf.Literal) (rdf.LiteralID, bool) {
	key, err := t.encoder.EncodeLiteral(lit.Value, lit.Type, lit.Language)
	if err != nil {
		return 0, false
	}
	for _, entry := range t.index[key.Hash] {
		if entry.text == key.Text {
			return entry.id, true
		}
	}
	return 0, false
}

// intern returns the handle of an identical literal already in the table,
// or stores lit. Literals whose value cannot be encoded are stored unshared.
func (t *literalTable) intern(lit *rdf.Literal) rdf.LiteralID {
	key, err := t.encoder.EncodeLiteral(lit.Value, lit.Type, lit.Language)
	if err != nil {
		return t.store(lit)
	}
	for _, entry := range t.index[key.Hash] {
		if entry.text == key.Text {
			return entry.id
		}
	}
	id := t.store(lit)
	t.index[key.Hash] = append(t.index[key.Hash], internEntry{text: key.Text, id: id})
	return id
}

func (t *literalTable) store(lit *rdf.Literal) rdf.LiteralID {
	id := rdf.LiteralID(len(t.values))
	t.values = append(t.values, lit)
	return id
}

// adaptLiteral builds the canonical literal for a value object and interns it
func (g *Graph) adaptLiteral(raw any, scope *rdf.Scope) rdf.Value {
	return rdf.LiteralValue(g.literals.intern(buildLiteral(raw, scope)))
}

// buildLiteral detaches a value object from its document. The datatype
// expands against the scope's prefixes and base, never its vocabulary.
func buildLiteral(raw any, scope *rdf.Scope) *rdf.Literal {
	lit := &rdf.Literal{}
	if value, ok := rdf.Lookup(raw, rdf.KeywordValue); ok {
		lit.Value = rdf.CloneTree(value)
	}
	if language, ok := rdf.Lookup(raw, rdf.KeywordLanguage); ok {
		if s, isString := language.(string); isString {
			lit.Language = &s
		}
	}
	if direction, ok := rdf.Lookup(raw, rdf.KeywordDirection); ok {
		if s, isString := direction.(string); isString {
			lit.Direction = &s
		}
	}
	if datatype, ok := rdf.Lookup(raw, rdf.KeywordType); ok {
		if _, isString := datatype.(string); isString {
			lit.Type, _ = scope.Expand(datatype, false)
		}
	}
	return lit
}

// primitiveLiteral wraps a bare scalar as an implicit value object
func (g *Graph) primitiveLiteral(value any) rdf.Value {
	return rdf.LiteralValue(g.literals.intern(&rdf.Literal{Value: value}))
}
