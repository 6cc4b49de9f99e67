package store

import (
	"fmt"

	"github.com/aleksaelezovic/terse/internal/rdfio"
	"github.com/aleksaelezovic/terse/pkg/rdf"
)

// blankLabeler assigns "_:b<N>" labels to blank nodes on first use
type blankLabeler struct {
	labels map[rdf.NodeID]string
	next   int
}

func newBlankLabeler() *blankLabeler {
	return &blankLabeler{labels: make(map[rdf.NodeID]string)}
}

func (l *blankLabeler) label() string {
	label := fmt.Sprintf("_:b%d", l.next)
	l.next++
	return label
}

func (l *blankLabeler) id(node *Node) string {
	if !node.IsBlank() {
		return node.iri
	}
	if label, ok := l.labels[node.id]; ok {
		return label
	}
	label := l.label()
	l.labels[node.id] = label
	return label
}

// Triples flattens the graph into one triple per (node, predicate, value),
// in node creation order. Blank nodes are labelled "_:b0", "_:b1", ... in
// order of first appearance.
func (g *Graph) Triples() []rdf.Triple {
	labels := newBlankLabeler()
	var triples []rdf.Triple
	for _, node := range g.nodes {
		if node.Len() == 0 {
			continue
		}
		subject := labels.id(node)
		for pair := node.props.Oldest(); pair != nil; pair = pair.Next() {
			for _, v := range pair.Value {
				triples = append(triples, rdf.NewTriple(subject, pair.Key, g.objectTerm(v, labels)))
			}
		}
	}
	return triples
}

func (g *Graph) objectTerm(v rdf.Value, labels *blankLabeler) any {
	switch v.Kind {
	case rdf.ValueNode:
		return rdf.NewReference(labels.id(g.nodes[v.Node]))
	case rdf.ValueLiteral:
		return g.Literal(v.Literal).Object()
	case rdf.ValueList:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = g.objectTerm(item, labels)
		}
		if v.Plain {
			return items
		}
		list := rdf.NewObject()
		list.Set(rdf.KeywordList, items)
		return list
	default:
		return nil
	}
}

// TreeOptions controls how a graph is rendered back into a tree document
type TreeOptions struct {
	// Root selects the top-level node; nil means the graph's root
	Root any
	// NoArray renders single-element value lists as the element itself
	NoArray bool
	// Base relativizes node identifiers against this IRI
	Base string
	// RawLiterals renders plain primitive literals as bare scalars
	RawLiterals bool
}

type treeWriter struct {
	g      *Graph
	opts   TreeOptions
	frags  map[rdf.NodeID]*rdf.Object
	labels *blankLabeler
}

// Tree renders the graph as a nested document starting at the root. Each
// node is expanded once; later occurrences become {"@id": ...} references,
// minting a blank label on the first expansion when the node has none.
// Nodes with properties that are unreachable from the root are appended
// under @included.
func (g *Graph) Tree(opts TreeOptions) *rdf.Object {
	w := &treeWriter{
		g:      g,
		opts:   opts,
		frags:  make(map[rdf.NodeID]*rdf.Object),
		labels: newBlankLabeler(),
	}

	var root rdf.NodeID
	var ok bool
	if opts.Root == nil {
		root, ok = g.Root()
	} else {
		root, ok = g.Get(opts.Root)
	}

	rv := rdf.NewObject()
	if ok {
		rv = w.node(root)
	}

	var included []any
	for _, node := range g.nodes {
		if _, seen := w.frags[node.id]; seen || node.Len() == 0 {
			continue
		}
		included = append(included, w.node(node.id))
	}
	if len(included) > 0 {
		rv.Set(rdf.KeywordIncluded, included)
	}
	return rv
}

func (w *treeWriter) node(id rdf.NodeID) *rdf.Object {
	if frag, ok := w.frags[id]; ok {
		ref, has := frag.Get(rdf.KeywordID)
		if !has {
			ref = w.labels.label()
			frag.Set(rdf.KeywordID, ref)
			_ = frag.MoveToFront(rdf.KeywordID)
		}
		return rdf.NewReference(ref.(string))
	}

	frag := rdf.NewObject()
	w.frags[id] = frag
	node := w.g.nodes[id]
	if !node.IsBlank() {
		frag.Set(rdf.KeywordID, rdf.Relativize(node.iri, w.opts.Base))
	}
	for pair := node.props.Oldest(); pair != nil; pair = pair.Next() {
		frag.Set(pair.Key, w.values(pair.Value))
	}
	return frag
}

func (w *treeWriter) values(values []rdf.Value) any {
	if w.opts.NoArray && len(values) == 1 {
		return w.value(values[0])
	}
	rv := make([]any, len(values))
	for i, v := range values {
		rv[i] = w.value(v)
	}
	return rv
}

func (w *treeWriter) value(v rdf.Value) any {
	switch v.Kind {
	case rdf.ValueNode:
		return w.node(v.Node)
	case rdf.ValueLiteral:
		return w.g.Literal(v.Literal).Tree(w.opts.RawLiterals)
	case rdf.ValueList:
		if v.Plain {
			return w.values(v.Items)
		}
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = w.value(item)
		}
		list := rdf.NewObject()
		list.Set(rdf.KeywordList, items)
		return list
	default:
		return nil
	}
}

// JSON renders the tree as JSON text, indented when indent is not empty
func (g *Graph) JSON(opts TreeOptions, indent string) ([]byte, error) {
	data, err := rdf.MarshalTreeIndent(g.Tree(opts), indent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return data, nil
}

// YAML renders the tree as a YAML document
func (g *Graph) YAML(opts TreeOptions) ([]byte, error) {
	return rdfio.EncodeYAML(g.Tree(opts))
}
