package store

import (
	"errors"
	"log/slog"

	"github.com/aleksaelezovic/terse/pkg/rdf"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultMaxDepth bounds the nesting depth of merged documents
const DefaultMaxDepth = 64

var (
	// ErrDepthExceeded is returned when a document nests deeper than the
	// configured maximum. The merge that hit it is abandoned.
	ErrDepthExceeded = errors.New("nested too deep")
)

// Options configures one merge into a graph
type Options struct {
	// DocumentURI is the base IRI of the document
	DocumentURI string
	// Vocab is the default vocabulary, unless the document declares one
	Vocab string
	// FallbackContext is folded into the scope before the document's own context
	FallbackContext any
	// MaxDepth limits nesting; zero means DefaultMaxDepth
	MaxDepth int
	// Logger receives the records of this merge. When nil, Merge uses the
	// graph's logger and NewGraph uses slog.Default().
	Logger *slog.Logger
}

func (o Options) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

// Node is a graph node: named when it has an IRI, blank otherwise.
// Its properties map predicate IRIs to value lists in first-use order.
type Node struct {
	id    rdf.NodeID
	iri   string
	props *orderedmap.OrderedMap[string, []rdf.Value]
}

func (n *Node) ID() rdf.NodeID {
	return n.id
}

// IRI returns the node's identifier, or "" for a blank node
func (n *Node) IRI() string {
	return n.iri
}

func (n *Node) IsBlank() bool {
	return n.iri == ""
}

// Len returns the number of predicates with values on the node
func (n *Node) Len() int {
	return n.props.Len()
}

// Predicates returns the node's predicate IRIs in first-use order
func (n *Node) Predicates() []string {
	rv := make([]string, 0, n.props.Len())
	for pair := n.props.Oldest(); pair != nil; pair = pair.Next() {
		rv = append(rv, pair.Key)
	}
	return rv
}

// Values returns the values of one predicate. The slice must not be modified.
func (n *Node) Values(predicate string) []rdf.Value {
	values, _ := n.props.Get(predicate)
	return values
}

// add appends values to a predicate, skipping any already present by identity
func (n *Node) add(predicate string, values []rdf.Value) {
	existing, _ := n.props.Get(predicate)
	for _, v := range values {
		if !containsSame(existing, v) {
			existing = append(existing, v)
		}
	}
	if existing == nil {
		existing = []rdf.Value{}
	}
	n.props.Set(predicate, existing)
}

func containsSame(values []rdf.Value, v rdf.Value) bool {
	for _, existing := range values {
		if existing.Same(v) {
			return true
		}
	}
	return false
}

// Graph owns every node and literal produced by merging documents. Nodes
// with an IRI are shared across merges; blank nodes are local to the merge
// that created them. Nodes are never removed.
//
// A Graph is not safe for concurrent use. Callers embedding it in concurrent
// code must serialize merges, queries and serialization externally.
type Graph struct {
	nodes    []*Node
	uris     map[string]rdf.NodeID
	literals *literalTable
	root     rdf.NodeID
	hasRoot  bool
	logger   *slog.Logger
}

// NewGraph creates a graph and merges doc into it when doc is not nil
func NewGraph(doc any, opts Options) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Graph{
		uris:     make(map[string]rdf.NodeID),
		literals: newLiteralTable(),
		logger:   logger,
	}
	if doc != nil {
		if _, err := g.Merge(doc, opts); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Len returns the number of nodes in the graph
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns every node handle in creation order, including blank nodes
// and predicate placeholders
func (g *Graph) Nodes() []rdf.NodeID {
	rv := make([]rdf.NodeID, len(g.nodes))
	for i, n := range g.nodes {
		rv[i] = n.id
	}
	return rv
}

// Node returns the node for a handle, or nil for an unknown handle
func (g *Graph) Node(id rdf.NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Literal returns the interned literal for a handle, or nil for an unknown handle
func (g *Graph) Literal(id rdf.LiteralID) *rdf.Literal {
	return g.literals.get(id)
}

// LiteralCount returns the number of distinct interned literals
func (g *Graph) LiteralCount() int {
	return len(g.literals.values)
}

// Get resolves a reference to a node of this graph. It accepts an IRI
// string, a node handle, a node Value, a *Node, or a tree object carrying @id.
func (g *Graph) Get(ref any) (rdf.NodeID, bool) {
	switch r := ref.(type) {
	case nil:
		return 0, false
	case string:
		id, ok := g.uris[r]
		return id, ok
	case rdf.NodeID:
		return r, g.Node(r) != nil
	case rdf.Value:
		if r.Kind != rdf.ValueNode {
			return 0, false
		}
		return r.Node, g.Node(r.Node) != nil
	case *Node:
		if r == nil || g.Node(r.id) != r {
			return 0, false
		}
		return r.id, true
	default:
		iri, ok := rdf.Lookup(ref, rdf.KeywordID)
		if !ok {
			return 0, false
		}
		s, ok := iri.(string)
		if !ok {
			return 0, false
		}
		id, ok := g.uris[s]
		return id, ok
	}
}

// Root returns the designated serialization root: the first node merged at
// the top level of a document, or else the first node created
func (g *Graph) Root() (rdf.NodeID, bool) {
	if g.hasRoot {
		return g.root, true
	}
	if len(g.nodes) > 0 {
		return g.nodes[0].id, true
	}
	return 0, false
}

// SetRoot designates a new root. It reports false, leaving the root
// unchanged, when ref does not resolve.
func (g *Graph) SetRoot(ref any) bool {
	id, ok := g.Get(ref)
	if !ok {
		return false
	}
	g.root = id
	g.hasRoot = true
	return true
}

func (g *Graph) newNode(iri string) rdf.NodeID {
	id := rdf.NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{
		id:    id,
		iri:   iri,
		props: orderedmap.New[string, []rdf.Value](),
	})
	if iri != "" {
		g.uris[iri] = id
	}
	return id
}

// namedNode looks up or creates the node for an IRI
func (g *Graph) namedNode(iri string) rdf.NodeID {
	if id, ok := g.uris[iri]; ok {
		return id
	}
	return g.newNode(iri)
}
