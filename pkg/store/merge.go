package store

import (
	"fmt"
	"log/slog"

	"github.com/aleksaelezovic/terse/pkg/rdf"
)

// mergeSession holds the per-call state of one Merge: the objects already
// merged, by reference, and the blank labels seen so far
type mergeSession struct {
	depth    int
	maxDepth int
	visited  map[any]rdf.Value
	blanks   map[string]rdf.NodeID
	logger   *slog.Logger
}

func newMergeSession(maxDepth int, logger *slog.Logger) *mergeSession {
	return &mergeSession{
		maxDepth: maxDepth,
		logger:   logger,
		visited:  make(map[any]rdf.Value),
		blanks:   make(map[string]rdf.NodeID),
	}
}

// Merge folds a tree document into the graph and returns the value the
// top-level element became. Named nodes are shared with earlier merges;
// blank labels only match within this call.
//
// A merge that fails leaves whatever it created before the failure in place.
func (g *Graph) Merge(doc any, opts Options) (rdf.Value, error) {
	scope := rdf.EntryScope(opts.DocumentURI, opts.Vocab, opts.FallbackContext)
	logger := opts.Logger
	if logger == nil {
		logger = g.logger
	}
	s := newMergeSession(opts.maxDepth(), logger)

	nodesBefore, literalsBefore := len(g.nodes), len(g.literals.values)
	v, err := g.merge(doc, scope, s)
	if err != nil {
		s.logger.Warn("merge failed", "document", opts.DocumentURI, "error", err)
		return rdf.Value{}, err
	}
	if !g.hasRoot && v.Kind == rdf.ValueNode {
		g.root = v.Node
		g.hasRoot = true
	}

	s.logger.Debug("merged document",
		"document", opts.DocumentURI,
		"nodes", len(g.nodes)-nodesBefore,
		"literals", len(g.literals.values)-literalsBefore,
		"result", v.Kind)
	return v, nil
}

func (g *Graph) merge(raw any, scope *rdf.Scope, s *mergeSession) (rdf.Value, error) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.maxDepth {
		return rdf.Value{}, fmt.Errorf("%w: depth %d exceeds limit %d", ErrDepthExceeded, s.depth, s.maxDepth)
	}

	if ctx, ok := rdf.Lookup(raw, rdf.KeywordContext); ok {
		scope = rdf.ResolveScope(scope, "", ctx)
	}

	if items, ok := raw.([]any); ok {
		values, err := g.mergeAll(items, scope, s)
		if err != nil {
			return rdf.Value{}, err
		}
		return rdf.NewPlainList(values), nil
	}
	if rdf.IsPrimitive(raw) {
		return g.primitiveLiteral(raw), nil
	}
	if list, ok := rdf.Lookup(raw, rdf.KeywordList); ok {
		items, _ := list.([]any)
		values, err := g.mergeAll(items, scope, s)
		if err != nil {
			return rdf.Value{}, err
		}
		return rdf.NewList(values), nil
	}
	if _, ok := rdf.Lookup(raw, rdf.KeywordValue); ok {
		return g.adaptLiteral(raw, scope), nil
	}

	key, _ := rdf.Identity(raw)
	if v, ok := s.visited[key]; ok {
		return v, nil
	}

	id, _ := rdf.Lookup(raw, rdf.KeywordID)
	nodeID := g.resolveNode(id, scope, s)
	v := rdf.NodeValue(nodeID)
	s.visited[key] = v

	if err := g.mergeProperties(g.nodes[nodeID], raw, scope, s); err != nil {
		return rdf.Value{}, err
	}
	return v, nil
}

func (g *Graph) mergeAll(items []any, scope *rdf.Scope, s *mergeSession) ([]rdf.Value, error) {
	values := make([]rdf.Value, 0, len(items))
	for _, item := range items {
		v, err := g.merge(item, scope, s)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// resolveNode finds or creates the node an @id designates. A missing,
// unresolvable or blank identifier yields a blank node.
func (g *Graph) resolveNode(id any, scope *rdf.Scope, s *mergeSession) rdf.NodeID {
	iri, ok := scope.Expand(id, false)
	switch {
	case !ok:
		return g.newNode("")
	case rdf.IsBlankLabel(iri):
		return g.blankNode(iri, s)
	default:
		return g.namedNode(iri)
	}
}

func (g *Graph) blankNode(label string, s *mergeSession) rdf.NodeID {
	if id, ok := s.blanks[label]; ok {
		return id
	}
	id := g.newNode("")
	s.blanks[label] = id
	return id
}

func (g *Graph) mergeProperties(node *Node, raw any, scope *rdf.Scope, s *mergeSession) error {
	fields, _ := rdf.Fields(raw)
	for _, f := range fields {
		switch {
		case f.Key == rdf.KeywordType:
			g.namedNode(rdf.RDFType)
			node.add(rdf.RDFType, g.typeValues(f.Value, scope, s))
		case f.Key == rdf.KeywordIncluded:
			if _, err := g.merge(f.Value, scope, s); err != nil {
				return err
			}
		case rdf.IsKeyword(f.Key):
			continue
		default:
			predicate, ok := scope.Expand(f.Key, true)
			if !ok {
				s.logger.Debug("dropping unresolvable property", "key", f.Key)
				continue
			}
			g.namedNode(predicate)
			values, err := g.mergeAll(asList(f.Value), scope, s)
			if err != nil {
				return err
			}
			node.add(predicate, values)
		}
	}
	return nil
}

// typeValues expands @type entries into node references. In a scope with a
// vocabulary, bare terms expand against it.
func (g *Graph) typeValues(raw any, scope *rdf.Scope, s *mergeSession) []rdf.Value {
	predicatePosition := scope.Vocab() != ""
	items := asList(raw)
	values := make([]rdf.Value, 0, len(items))
	for _, item := range items {
		if _, ok := item.(string); !ok {
			s.logger.Debug("dropping non-string type", "type", item)
			continue
		}
		iri, ok := scope.Expand(item, predicatePosition)
		if !ok {
			s.logger.Debug("dropping unresolvable type", "type", item)
			continue
		}
		if rdf.IsBlankLabel(iri) {
			values = append(values, rdf.NodeValue(g.blankNode(iri, s)))
			continue
		}
		values = append(values, rdf.NodeValue(g.namedNode(iri)))
	}
	return values
}

func asList(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	return []any{v}
}
