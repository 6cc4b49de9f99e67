package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aleksaelezovic/terse/internal/rdfio"
	"github.com/aleksaelezovic/terse/pkg/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

func parse(t *testing.T, text string) any {
	t.Helper()
	doc, err := rdfio.DecodeJSON([]byte(text))
	require.NoError(t, err)
	return doc
}

func newGraph(t *testing.T, text string, opts Options) *Graph {
	t.Helper()
	g, err := NewGraph(parse(t, text), opts)
	require.NoError(t, err)
	return g
}

func node(t *testing.T, g *Graph, iri string) *Node {
	t.Helper()
	id, ok := g.Get(iri)
	require.True(t, ok, "node %s not found", iri)
	return g.Node(id)
}

func literalValues(t *testing.T, g *Graph, values []rdf.Value) []any {
	t.Helper()
	rv := make([]any, len(values))
	for i, v := range values {
		require.Equal(t, rdf.ValueLiteral, v.Kind)
		rv[i] = g.Literal(v.Literal).Value
	}
	return rv
}

func TestMerge_PrimitivesKeepOrder(t *testing.T) {
	g := newGraph(t, `{"@id": "http://example.org/s", "http://example.org/p": [null, true, false, 3, "literal", -4]}`, Options{})

	values := node(t, g, ex+"s").Values(ex + "p")
	require.Len(t, values, 6)
	assert.Equal(t, []any{nil, true, false, json.Number("3"), "literal", json.Number("-4")}, literalValues(t, g, values))
}

func TestMerge_PrefixesAndVocabulary(t *testing.T) {
	g := newGraph(t, `{
		"@context": {"ex": "http://example.org/", "@vocab": "http://schema.org/"},
		"@id": "ex:alice",
		"@type": "Person",
		"name": "Alice",
		"ex:age": 42
	}`, Options{})

	alice := node(t, g, ex+"alice")
	assert.Equal(t, []string{rdf.RDFType, "http://schema.org/name", ex + "age"}, alice.Predicates())

	types := alice.Values(rdf.RDFType)
	require.Len(t, types, 1)
	assert.Equal(t, "http://schema.org/Person", g.Node(types[0].Node).IRI())
}

func TestMerge_TypeWithoutVocabularyResolvesAgainstBase(t *testing.T) {
	g := newGraph(t, `{"@id": "", "@type": "Person"}`, Options{DocumentURI: "http://example.org/doc"})

	doc := node(t, g, ex+"doc")
	types := doc.Values(rdf.RDFType)
	require.Len(t, types, 1)
	assert.Equal(t, ex+"Person", g.Node(types[0].Node).IRI())
}

func TestMerge_UnresolvablePropertyDropped(t *testing.T) {
	g := newGraph(t, `{"@id": "http://example.org/s", "name": "x", "@unknown": 1}`, Options{})
	assert.Equal(t, 0, node(t, g, ex+"s").Len())

	g = newGraph(t, `{"@id": "http://example.org/s", "name": "x"}`, Options{Vocab: "http://schema.org/"})
	assert.Equal(t, []string{"http://schema.org/name"}, node(t, g, ex+"s").Predicates())
}

func TestMerge_DisabledPrefixDropsTerm(t *testing.T) {
	g := newGraph(t, `{
		"@context": [{"ex": "http://example.org/", "name": "http://schema.org/name"}, {"name": null}],
		"@id": "ex:s",
		"name": "dropped",
		"ex:kept": "yes"
	}`, Options{})

	assert.Equal(t, []string{ex + "kept"}, node(t, g, ex+"s").Predicates())
}

func TestMerge_PredicatePlaceholders(t *testing.T) {
	g := newGraph(t, `{"@id": "http://example.org/s", "http://example.org/p": 1}`, Options{})

	p := node(t, g, ex+"p")
	assert.False(t, p.IsBlank())
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 2, g.Len())
}

func TestMerge_IdentityPersistsAcrossMerges(t *testing.T) {
	g := newGraph(t, `{"@id": "http://example.org/s", "http://example.org/p": "a"}`, Options{})
	before := node(t, g, ex+"s")

	_, err := g.Merge(parse(t, `{"@id": "http://example.org/s", "http://example.org/p": ["a", "b"]}`), Options{})
	require.NoError(t, err)

	after := node(t, g, ex+"s")
	assert.Same(t, before, after)
	assert.Equal(t, []any{"a", "b"}, literalValues(t, g, after.Values(ex+"p")))
}

func TestMerge_BlankLabelsScopedToOneMerge(t *testing.T) {
	g, err := NewGraph(nil, Options{})
	require.NoError(t, err)

	v, err := g.Merge(parse(t, `[{"@id": "_:x", "http://example.org/p": 1}, {"@id": "_:x", "http://example.org/q": 2}, {"@id": "_:y"}]`), Options{})
	require.NoError(t, err)
	require.Equal(t, rdf.ValueList, v.Kind)
	require.Len(t, v.Items, 3)
	assert.Equal(t, v.Items[0].Node, v.Items[1].Node)
	assert.NotEqual(t, v.Items[0].Node, v.Items[2].Node)
	assert.Equal(t, 2, g.Node(v.Items[0].Node).Len())

	again, err := g.Merge(parse(t, `{"@id": "_:x"}`), Options{})
	require.NoError(t, err)
	assert.NotEqual(t, v.Items[0].Node, again.Node)
	assert.True(t, g.Node(again.Node).IsBlank())
}

func TestMerge_SharedInputObjectMergedOnce(t *testing.T) {
	shared := rdf.NewObject()
	shared.Set("http://example.org/name", "shared")
	doc := rdf.NewObject()
	doc.Set("@id", ex+"s")
	doc.Set(ex+"a", shared)
	doc.Set(ex+"b", shared)

	g, err := NewGraph(doc, Options{})
	require.NoError(t, err)

	s := node(t, g, ex+"s")
	a, b := s.Values(ex+"a"), s.Values(ex+"b")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].Node, b[0].Node)
}

func TestMerge_Cycle(t *testing.T) {
	a := rdf.NewObject()
	a.Set("@id", ex+"a")
	b := rdf.NewObject()
	b.Set(ex+"back", a)
	a.Set(ex+"next", b)

	g, err := NewGraph(a, Options{})
	require.NoError(t, err)

	next := node(t, g, ex+"a").Values(ex + "next")
	require.Len(t, next, 1)
	back := g.Node(next[0].Node).Values(ex + "back")
	require.Len(t, back, 1)
	assert.Equal(t, node(t, g, ex+"a").ID(), back[0].Node)
}

func TestMerge_LiteralsInterned(t *testing.T) {
	g := newGraph(t, `{
		"@id": "http://example.org/s",
		"http://example.org/a": "x",
		"http://example.org/b": {"@value": "x"},
		"http://example.org/c": {"@value": "x", "@direction": "rtl"},
		"http://example.org/d": {"@value": "x", "@language": "en"},
		"http://example.org/e": {"@value": "y"},
		"http://example.org/f": {"@value": "x", "@type": "http://example.org/t"}
	}`, Options{})

	s := node(t, g, ex+"s")
	first := func(p string) rdf.Value { return s.Values(ex + p)[0] }
	a := first("a")
	assert.True(t, a.Same(first("b")))
	assert.True(t, a.Same(first("c")), "direction is not part of literal identity")
	assert.False(t, a.Same(first("d")), "language")
	assert.False(t, a.Same(first("e")), "value")
	assert.False(t, a.Same(first("f")), "datatype")
	assert.Equal(t, 4, g.LiteralCount())
}

func TestMerge_EmptyLanguageIsDistinct(t *testing.T) {
	g := newGraph(t, `{
		"@id": "http://example.org/s",
		"http://example.org/p": [{"@value": "x", "@language": ""}, "x", {"@value": "x", "@language": null}]
	}`, Options{})

	values := node(t, g, ex+"s").Values(ex + "p")
	require.Len(t, values, 2)
	assert.False(t, values[0].Same(values[1]))

	tagged := g.Literal(values[0].Literal)
	require.NotNil(t, tagged.Language)
	assert.Equal(t, "", *tagged.Language)
	assert.Nil(t, g.Literal(values[1].Literal).Language)

	out, err := g.JSON(TreeOptions{RawLiterals: true}, "")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"http://example.org/p":[{"@value":"x","@language":""},"x"]`)
}

func TestMerge_PerMergeLogger(t *testing.T) {
	var graphLog, mergeLog bytes.Buffer
	g, err := NewGraph(nil, Options{Logger: slog.New(slog.NewTextHandler(&graphLog, &slog.HandlerOptions{Level: slog.LevelDebug}))})
	require.NoError(t, err)

	mergeLogger := slog.New(slog.NewTextHandler(&mergeLog, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = g.Merge(parse(t, `{"@id": "http://example.org/s"}`), Options{DocumentURI: ex + "doc", Logger: mergeLogger})
	require.NoError(t, err)
	assert.Contains(t, mergeLog.String(), "merged document")
	assert.Empty(t, graphLog.String())

	_, err = g.Merge(parse(t, `{"@id": "http://example.org/t"}`), Options{})
	require.NoError(t, err)
	assert.Contains(t, graphLog.String(), "merged document")
}

func TestMerge_LiteralDatatypeExpansion(t *testing.T) {
	g := newGraph(t, `{
		"@context": {"xsd": "http://www.w3.org/2001/XMLSchema#", "@vocab": "http://schema.org/"},
		"@id": "http://example.org/s",
		"http://example.org/a": {"@value": "1", "@type": "xsd:integer"},
		"http://example.org/b": {"@value": "x", "@type": "custom"}
	}`, Options{DocumentURI: "http://example.org/doc"})

	s := node(t, g, ex+"s")
	assert.Equal(t, rdf.XSDInteger, g.Literal(s.Values(ex + "a")[0].Literal).Type)
	assert.Equal(t, ex+"custom", g.Literal(s.Values(ex + "b")[0].Literal).Type)
}

func TestMerge_Lists(t *testing.T) {
	g := newGraph(t, `{
		"@id": "http://example.org/s",
		"http://example.org/list": {"@list": [1, {"@id": "http://example.org/o"}]},
		"http://example.org/empty": {"@list": "not an array"},
		"http://example.org/nested": [[1, 2], 3]
	}`, Options{})

	s := node(t, g, ex+"s")

	list := s.Values(ex + "list")
	require.Len(t, list, 1)
	require.Equal(t, rdf.ValueList, list[0].Kind)
	assert.False(t, list[0].Plain)
	require.Len(t, list[0].Items, 2)
	assert.Equal(t, node(t, g, ex+"o").ID(), list[0].Items[1].Node)

	empty := s.Values(ex + "empty")
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].Items)

	nested := s.Values(ex + "nested")
	require.Len(t, nested, 2)
	assert.True(t, nested[0].Plain)
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, literalValues(t, g, nested[0].Items))
}

func TestMerge_IncludedMergedForSideEffects(t *testing.T) {
	g := newGraph(t, `{
		"@id": "http://example.org/s",
		"@included": [{"@id": "http://example.org/other", "http://example.org/p": 1}]
	}`, Options{})

	assert.Equal(t, 0, node(t, g, ex+"s").Len())
	assert.Equal(t, 1, node(t, g, ex+"other").Len())
}

func TestMerge_NestedContextScopes(t *testing.T) {
	g := newGraph(t, `{
		"@context": {"ex": "http://example.org/"},
		"@id": "ex:s",
		"ex:child": {
			"@context": {"ex": "http://other.org/"},
			"@id": "ex:c"
		},
		"ex:sibling": {"@id": "ex:d"}
	}`, Options{})

	s := node(t, g, ex+"s")
	assert.Equal(t, "http://other.org/c", g.Node(s.Values(ex + "child")[0].Node).IRI())
	assert.Equal(t, ex+"d", g.Node(s.Values(ex + "sibling")[0].Node).IRI())
}

func TestMerge_DepthLimit(t *testing.T) {
	var doc any = "leaf"
	for i := 0; i < DefaultMaxDepth+5; i++ {
		o := rdf.NewObject()
		o.Set(ex+"p", doc)
		doc = o
	}

	g, err := NewGraph(doc, Options{})
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDepthExceeded))

	shallow := parse(t, `{"http://example.org/p": {"http://example.org/q": "x"}}`)
	_, err = NewGraph(shallow, Options{MaxDepth: 2})
	assert.ErrorIs(t, err, ErrDepthExceeded)
	_, err = NewGraph(shallow, Options{MaxDepth: 3})
	assert.NoError(t, err)
}

func TestMerge_FallbackContextFromRoot(t *testing.T) {
	doc := parse(t, `{
		"@context": {"ex": "terms#"},
		"@metadata": {"ex:author": "me"}
	}`)
	uri := "http://example.org/doc"
	ctx := rdf.EffectiveRootContext(doc, uri, "", nil)
	metadata, _ := rdf.Lookup(doc, "@metadata")

	g, err := NewGraph(metadata, Options{FallbackContext: ctx})
	require.NoError(t, err)

	root, ok := g.Root()
	require.True(t, ok)
	assert.Equal(t, []string{ex + "terms#author"}, g.Node(root).Predicates())
}

func TestGraph_Get(t *testing.T) {
	g := newGraph(t, `{"@id": "http://example.org/s", "http://example.org/p": {"@id": "http://example.org/o"}}`, Options{})
	s := node(t, g, ex+"s")

	id, ok := g.Get(s.ID())
	assert.True(t, ok)
	assert.Equal(t, s.ID(), id)

	id, ok = g.Get(s)
	assert.True(t, ok)
	assert.Equal(t, s.ID(), id)

	id, ok = g.Get(rdf.NodeValue(s.ID()))
	assert.True(t, ok)
	assert.Equal(t, s.ID(), id)

	id, ok = g.Get(parse(t, `{"@id": "http://example.org/o"}`))
	assert.True(t, ok)
	assert.Equal(t, "http://example.org/o", g.Node(id).IRI())

	for _, ref := range []any{nil, ex + "missing", rdf.NodeID(99), rdf.LiteralValue(0), &Node{id: s.ID()}, 42} {
		_, ok := g.Get(ref)
		assert.False(t, ok, "ref %#v", ref)
	}
}

func TestGraph_Root(t *testing.T) {
	g, err := NewGraph(nil, Options{})
	require.NoError(t, err)
	_, ok := g.Root()
	assert.False(t, ok)

	_, err = g.Merge(parse(t, `[{"@id": "http://example.org/a"}]`), Options{})
	require.NoError(t, err)
	root, ok := g.Root()
	require.True(t, ok)
	assert.Equal(t, ex+"a", g.Node(root).IRI(), "first created node when no top-level node")

	_, err = g.Merge(parse(t, `{"@id": "http://example.org/b"}`), Options{})
	require.NoError(t, err)
	root, _ = g.Root()
	assert.Equal(t, ex+"b", g.Node(root).IRI())

	assert.True(t, g.SetRoot(ex+"a"))
	root, _ = g.Root()
	assert.Equal(t, ex+"a", g.Node(root).IRI())
	assert.False(t, g.SetRoot(ex+"missing"))
}
