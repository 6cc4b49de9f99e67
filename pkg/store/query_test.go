package store

import (
	"testing"

	"github.com/aleksaelezovic/terse/pkg/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeIRIs(g *Graph, values []rdf.Value) []string {
	rv := make([]string, len(values))
	for i, v := range values {
		rv[i] = g.Node(v.Node).IRI()
	}
	return rv
}

func TestSelect_SubjectAndPredicate(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	matches := g.Select(&Pattern{Subject: ex + "alice", Predicate: rdf.RDFType})
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, node(t, g, ex+"alice").ID(), m.Subject)
		assert.Equal(t, node(t, g, rdf.RDFType).ID(), m.Predicate)
	}
	assert.Equal(t, ex+"Person", g.Node(matches[0].Object.Node).IRI())
	assert.Equal(t, ex+"Agent", g.Node(matches[1].Object.Node).IRI())
}

func TestSelect_UnresolvedConstraintsMatchNothing(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	assert.Empty(t, g.Select(&Pattern{Subject: ex + "missing"}))
	assert.Empty(t, g.Select(&Pattern{Predicate: ex + "missing"}))
	assert.Empty(t, g.Select(&Pattern{Object: ex + "missing"}))
	assert.Empty(t, g.Select(&Pattern{Object: parse(t, `{"@value": "nobody"}`)}))
}

func TestSelect_All(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	assert.Len(t, g.Select(nil), len(g.Triples()))
}

func TestSelectColumn_SubjectsByObject(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})
	_, err := g.Merge(parse(t, `{"@id": "http://example.org/alias", "http://example.org/name": "Alice"}`), Options{})
	require.NoError(t, err)

	subjects := g.SelectColumn(&Pattern{Object: parse(t, `{"@value": "Alice"}`)}, ColumnSubject)
	assert.Equal(t, []string{ex + "alice", ex + "alias"}, nodeIRIs(g, subjects))

	subjects = g.SelectColumn(&Pattern{Object: &rdf.Literal{Value: "Alice"}}, ColumnSubject)
	assert.Len(t, subjects, 2)

	subjects = g.SelectColumn(&Pattern{Object: ex + "Person"}, ColumnSubject)
	assert.Equal(t, []string{ex + "alice"}, nodeIRIs(g, subjects))
}

func TestSelectColumn_Deduplicates(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	predicates := g.SelectColumn(&Pattern{}, ColumnPredicate)
	assert.Equal(t, []string{rdf.RDFType, ex + "name", ex + "knows"}, nodeIRIs(g, predicates))

	objects := g.SelectColumn(&Pattern{Predicate: ex + "name"}, ColumnObject)
	require.Len(t, objects, 2)
	assert.Equal(t, "Alice", g.Literal(objects[0].Literal).Value)
	assert.Equal(t, "Bob", g.Literal(objects[1].Literal).Value)

	assert.Nil(t, g.SelectColumn(&Pattern{}, Column(0)))
}

func TestSelect_FilterAndNodes(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	bob := g.Select(&Pattern{
		Predicate: ex + "name",
		Filter: func(m Match) bool {
			return m.Object.Kind == rdf.ValueLiteral && g.Literal(m.Object.Literal).Value == "Bob"
		},
	})
	require.Len(t, bob, 1)
	assert.True(t, g.Node(bob[0].Subject).IsBlank())

	restricted := g.Select(&Pattern{Nodes: []rdf.NodeID{bob[0].Subject}})
	require.Len(t, restricted, 1)
	assert.Equal(t, bob[0], restricted[0])

	conflicting := g.Select(&Pattern{Subject: ex + "alice", Nodes: []rdf.NodeID{bob[0].Subject}})
	assert.Empty(t, conflicting)
}

func TestSelect_LiteralTemplate(t *testing.T) {
	g := newGraph(t, `{
		"@id": "http://example.org/s",
		"http://example.org/p": [
			{"@value": "hi", "@language": "en"},
			{"@value": "hi", "@language": "fr"},
			"hi",
			3,
			{"@id": "http://example.org/o"}
		]
	}`, Options{})

	tests := []struct {
		name     string
		template any
		want     int
	}{
		{"bare scalar matches every variant", "hi", 3},
		{"language only", parse(t, `{"@language": "en"}`), 1},
		{"null matches absent field", parse(t, `{"@value": "hi", "@language": null}`), 1},
		{"numbers compare by value", 3, 1},
		{"non-string field never matches", parse(t, `{"@language": 5}`), 0},
		{"structured literal", &rdf.Literal{Value: "hi", Language: rdf.StringPtr("fr")}, 1},
		{"no match", "bye", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, g.Select(&Pattern{Literal: tt.template}), tt.want)
		})
	}
}

func TestColumn_String(t *testing.T) {
	assert.Equal(t, "subject", ColumnSubject.String())
	assert.Equal(t, "predicate", ColumnPredicate.String())
	assert.Equal(t, "object", ColumnObject.String())
	assert.Equal(t, "invalid", Column(9).String())
}

func TestMatchTriples(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	triples := g.MatchTriples(g.Select(&Pattern{Predicate: ex + "knows"}))
	require.Len(t, triples, 1)
	assert.Equal(t, ex+"alice", triples[0].Subject)
	assert.Equal(t, ex+"knows", triples[0].Predicate)
	id, ok := rdf.ReferenceID(triples[0].Object)
	require.True(t, ok)
	assert.Equal(t, "_:b0", id)
}

func TestTerms(t *testing.T) {
	g := newGraph(t, aliceDoc, Options{})

	terms := g.Terms(g.SelectColumn(&Pattern{Subject: ex + "alice", Predicate: ex + "name"}, ColumnObject))
	require.Len(t, terms, 1)
	out, err := rdf.MarshalTree(terms[0])
	require.NoError(t, err)
	assert.Equal(t, `{"@value":"Alice"}`, string(out))
}
