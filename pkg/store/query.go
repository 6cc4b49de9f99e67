package store

import (
	"github.com/aleksaelezovic/terse/internal/encoding"
	"github.com/aleksaelezovic/terse/pkg/rdf"
)

// Column selects one position of a match for projection
type Column int

const (
	ColumnSubject Column = iota + 1
	ColumnPredicate
	ColumnObject
)

func (c Column) String() string {
	switch c {
	case ColumnSubject:
		return "subject"
	case ColumnPredicate:
		return "predicate"
	case ColumnObject:
		return "object"
	default:
		return "invalid"
	}
}

// Pattern constrains a select. Nil fields match anything.
type Pattern struct {
	Subject   any // node reference, see Graph.Get
	Predicate any // node reference
	Object    any // node reference, literal handle, *rdf.Literal or value object

	// Literal is a template matched field by field against literal values.
	// A bare scalar stands for {"@value": scalar}. Only the fields present
	// in the template are compared.
	Literal any

	// Nodes restricts the candidate subjects
	Nodes []rdf.NodeID

	// Filter is applied last to each candidate match
	Filter func(Match) bool
}

// Match is one (subject, predicate, value) fact
type Match struct {
	Subject   rdf.NodeID
	Predicate rdf.NodeID
	Object    rdf.Value
}

// Select returns every match of the pattern in node creation order, then
// predicate first-use order, then value order. A constraint that does not
// resolve in the graph yields no matches.
func (g *Graph) Select(p *Pattern) []Match {
	if p == nil {
		p = &Pattern{}
	}

	var subject, predicate rdf.NodeID
	var object rdf.Value
	hasSubject, hasPredicate, hasObject := p.Subject != nil, p.Predicate != nil, p.Object != nil

	var ok bool
	if hasSubject {
		if subject, ok = g.Get(p.Subject); !ok {
			return nil
		}
	}
	if hasPredicate {
		if predicate, ok = g.Get(p.Predicate); !ok {
			return nil
		}
	}
	if hasObject {
		if object, ok = g.resolveValue(p.Object); !ok {
			return nil
		}
	}
	tmpl, hasTemplate := newLiteralTemplate(p.Literal)

	candidates := p.Nodes
	if candidates == nil {
		if hasSubject {
			candidates = []rdf.NodeID{subject}
		} else {
			candidates = g.Nodes()
		}
	}

	var matches []Match
	for _, id := range candidates {
		if hasSubject && id != subject {
			continue
		}
		node := g.Node(id)
		if node == nil {
			continue
		}
		for pair := node.props.Oldest(); pair != nil; pair = pair.Next() {
			predID := g.uris[pair.Key]
			if hasPredicate && predID != predicate {
				continue
			}
			for _, v := range pair.Value {
				if hasObject && !v.Same(object) {
					continue
				}
				if hasTemplate && !tmpl.matches(g.valueLiteral(v)) {
					continue
				}
				m := Match{Subject: id, Predicate: predID, Object: v}
				if p.Filter != nil && !p.Filter(m) {
					continue
				}
				matches = append(matches, m)
			}
		}
	}
	return matches
}

// SelectColumn projects the matches of a pattern onto one column, keeping
// the first occurrence of each distinct value
func (g *Graph) SelectColumn(p *Pattern, column Column) []rdf.Value {
	var values []rdf.Value
	for _, m := range g.Select(p) {
		var v rdf.Value
		switch column {
		case ColumnSubject:
			v = rdf.NodeValue(m.Subject)
		case ColumnPredicate:
			v = rdf.NodeValue(m.Predicate)
		case ColumnObject:
			v = m.Object
		default:
			return nil
		}
		if !containsSame(values, v) {
			values = append(values, v)
		}
	}
	return values
}

// MatchTriples converts matches to triples, labelling blank nodes in order
// of first appearance
func (g *Graph) MatchTriples(matches []Match) []rdf.Triple {
	labels := newBlankLabeler()
	triples := make([]rdf.Triple, len(matches))
	for i, m := range matches {
		triples[i] = rdf.NewTriple(
			labels.id(g.nodes[m.Subject]),
			labels.id(g.nodes[m.Predicate]),
			g.objectTerm(m.Object, labels),
		)
	}
	return triples
}

// Terms renders values as tree terms: references for nodes, value objects
// for literals and list objects for lists
func (g *Graph) Terms(values []rdf.Value) []any {
	labels := newBlankLabeler()
	terms := make([]any, len(values))
	for i, v := range values {
		terms[i] = g.objectTerm(v, labels)
	}
	return terms
}

// resolveValue resolves an object constraint to a value of this graph
func (g *Graph) resolveValue(ref any) (rdf.Value, bool) {
	switch r := ref.(type) {
	case rdf.LiteralID:
		return rdf.LiteralValue(r), g.Literal(r) != nil
	case rdf.Value:
		if r.Kind == rdf.ValueLiteral {
			return r, g.Literal(r.Literal) != nil
		}
	case *rdf.Literal:
		id, ok := g.literals.lookup(r)
		return rdf.LiteralValue(id), ok
	}
	if _, ok := rdf.Lookup(ref, rdf.KeywordValue); ok {
		id, ok := g.literals.lookup(buildLiteral(ref, nil))
		return rdf.LiteralValue(id), ok
	}
	id, ok := g.Get(ref)
	if !ok {
		return rdf.Value{}, false
	}
	return rdf.NodeValue(id), true
}

func (g *Graph) valueLiteral(v rdf.Value) *rdf.Literal {
	if v.Kind != rdf.ValueLiteral {
		return nil
	}
	return g.Literal(v.Literal)
}

// templateField constrains one optional literal field. A present field with
// a nil value requires the field to be absent.
type templateField struct {
	value   *string
	present bool
}

type literalTemplate struct {
	value      any
	hasValue   bool
	datatype   templateField
	language   templateField
	dir        templateField
	impossible bool
}

func newLiteralTemplate(raw any) (*literalTemplate, bool) {
	if raw == nil {
		return nil, false
	}
	t := &literalTemplate{}
	if lit, ok := raw.(*rdf.Literal); ok {
		t.value, t.hasValue = lit.Value, true
		t.datatype = templateField{optional(lit.Type), lit.Type != ""}
		t.language = templateField{lit.Language, lit.Language != nil}
		t.dir = templateField{lit.Direction, lit.Direction != nil}
		return t, true
	}
	if !rdf.IsObject(raw) {
		t.value, t.hasValue = raw, true
		return t, true
	}
	t.value, t.hasValue = rdf.Lookup(raw, rdf.KeywordValue)
	t.datatype = t.field(raw, rdf.KeywordType)
	t.language = t.field(raw, rdf.KeywordLanguage)
	t.dir = t.field(raw, rdf.KeywordDirection)
	return t, true
}

// field reads one string field of a template; null matches an absent field
func (t *literalTemplate) field(raw any, key string) templateField {
	v, ok := rdf.Lookup(raw, key)
	if !ok {
		return templateField{}
	}
	switch s := v.(type) {
	case nil:
		return templateField{present: true}
	case string:
		return templateField{value: &s, present: true}
	default:
		t.impossible = true
		return templateField{}
	}
}

func (t *literalTemplate) matches(lit *rdf.Literal) bool {
	if lit == nil || t.impossible {
		return false
	}
	if t.hasValue && !encoding.SameValue(t.value, lit.Value) {
		return false
	}
	return t.datatype.matches(optional(lit.Type)) && t.language.matches(lit.Language) && t.dir.matches(lit.Direction)
}

func (f templateField) matches(s *string) bool {
	if !f.present {
		return true
	}
	if f.value == nil || s == nil {
		return f.value == nil && s == nil
	}
	return *f.value == *s
}

// optional maps an empty datatype to an absent one
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
