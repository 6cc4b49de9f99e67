package rdf

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Prefix is one entry of a scope's prefix table. A disabled entry shadows
// any inherited mapping of the same name and never expands.
type Prefix struct {
	IRI      string
	Disabled bool
}

// Scope is the base IRI, prefix table and default vocabulary in effect at a
// point in a document. Scopes are immutable; ResolveScope derives a new one.
// A nil *Scope is the empty scope.
type Scope struct {
	base     string
	prefixes *orderedmap.OrderedMap[string, Prefix]
	vocab    string
}

// NewScope creates a scope with the given base IRI and vocabulary
func NewScope(base, vocab string) *Scope {
	return &Scope{base: base, vocab: vocab}
}

// Base returns the base IRI, or "" when none is set
func (s *Scope) Base() string {
	if s == nil {
		return ""
	}
	return s.base
}

// Vocab returns the default vocabulary, or "" when none is set
func (s *Scope) Vocab() string {
	if s == nil {
		return ""
	}
	return s.vocab
}

// Prefix looks up a prefix table entry
func (s *Scope) Prefix(name string) (Prefix, bool) {
	if s == nil || s.prefixes == nil {
		return Prefix{}, false
	}
	return s.prefixes.Get(name)
}

// PrefixNames returns the prefix table keys in declaration order
func (s *Scope) PrefixNames() []string {
	if s == nil || s.prefixes == nil {
		return nil
	}
	names := make([]string, 0, s.prefixes.Len())
	for pair := s.prefixes.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

func (s *Scope) clone() *Scope {
	if s == nil {
		return &Scope{}
	}
	rv := *s
	return &rv
}

// EntryScope computes the scope at a document entry point: the document IRI
// as base, folded with the caller's fallback context and vocabulary.
func EntryScope(documentURI, vocab string, fallbackContext any) *Scope {
	return ResolveScope(NewScope(documentURI, ""), vocab, fallbackContext)
}

// ResolveScope folds a context declaration into cur. vocabOverride applies
// when the context itself declares no @vocab. Arrays of contexts fold in
// order; anything that is not an object (such as a remote context IRI) is
// ignored.
func ResolveScope(cur *Scope, vocabOverride string, rawContext any) *Scope {
	rv := cur.clone()
	declared := false

	if contexts, ok := rawContext.([]any); ok {
		for _, ctx := range contexts {
			var d bool
			rv, d = rv.overlay(ctx)
			declared = declared || d
		}
	} else {
		rv, declared = rv.overlay(rawContext)
	}

	if !declared && vocabOverride != "" {
		rv.vocab = ResolveIRI(vocabOverride, rv.base)
	}
	return rv
}

// overlay applies one context object. It reports whether @vocab was declared.
func (s *Scope) overlay(rawContext any) (*Scope, bool) {
	fields, ok := Fields(rawContext)
	if !ok {
		return s, false
	}
	rv := s.clone()

	if value, ok := Lookup(rawContext, KeywordBase); ok {
		switch base := value.(type) {
		case string:
			rv.base = ResolveIRI(base, s.base)
		case nil:
			rv.base = ""
		}
	}

	copied := false
	for _, f := range fields {
		if IsKeyword(f.Key) {
			continue
		}
		if !copied {
			rv.prefixes = copyPrefixes(s.prefixes)
			copied = true
		}
		if iri, ok := f.Value.(string); ok {
			rv.prefixes.Set(f.Key, Prefix{IRI: ResolveIRI(iri, rv.base)})
		} else {
			rv.prefixes.Set(f.Key, Prefix{Disabled: true})
		}
	}

	value, declared := Lookup(rawContext, KeywordVocab)
	if declared {
		if vocab, ok := value.(string); ok {
			rv.vocab = ResolveIRI(vocab, rv.base)
		} else {
			rv.vocab = ""
		}
	}
	return rv, declared
}

func copyPrefixes(src *orderedmap.OrderedMap[string, Prefix]) *orderedmap.OrderedMap[string, Prefix] {
	dst := orderedmap.New[string, Prefix]()
	if src == nil {
		return dst
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst.Set(pair.Key, pair.Value)
	}
	return dst
}

// Expand converts a shorthand identifier to its absolute form. Predicate
// position enables vocabulary-relative expansion; outside it, unmatched
// tokens resolve against the base IRI. The second result is false when the
// token does not expand (non-string input, a disabled term, or a predicate
// with no vocabulary to fall back on).
func (s *Scope) Expand(token any, predicatePosition bool) (string, bool) {
	str, ok := token.(string)
	if !ok {
		return "", false
	}
	if str == KeywordJSON {
		return RDFJSON, true
	}

	if colon := strings.IndexByte(str, ':'); colon >= 0 {
		prefix, ok := s.Prefix(str[:colon])
		if ok && !prefix.Disabled && !hasScheme(str, colon) {
			return prefix.IRI + str[colon+1:], true
		}
		return str, true
	}

	if prefix, ok := s.Prefix(str); ok {
		if prefix.Disabled {
			return "", false
		}
		return prefix.IRI, true
	}

	if predicatePosition {
		if vocab := s.Vocab(); vocab != "" {
			return vocab + str, true
		}
		return "", false
	}

	rv := ResolveIRI(str, s.Base())
	return rv, rv != ""
}

// Context renders the scope as a context object that reproduces it when
// folded into an empty scope: prefixes (disabled ones as null), then @base
// and @vocab when set.
func (s *Scope) Context() *Object {
	rv := NewObject()
	if s == nil {
		return rv
	}
	if s.prefixes != nil {
		for pair := s.prefixes.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value.Disabled {
				rv.Set(pair.Key, nil)
			} else {
				rv.Set(pair.Key, pair.Value.IRI)
			}
		}
	}
	if s.base != "" {
		rv.Set(KeywordBase, s.base)
	}
	if s.vocab != "" {
		rv.Set(KeywordVocab, s.vocab)
	}
	return rv
}

// EffectiveRootContext returns the scope visible at the top of doc as a
// context object. Passing it as the fallback context lets a fragment of doc
// be processed under the same scope without merging the whole document.
func EffectiveRootContext(doc any, documentURI, vocab string, fallbackContext any) *Object {
	scope := EntryScope(documentURI, vocab, fallbackContext)
	if ctx, ok := Lookup(doc, KeywordContext); ok {
		scope = ResolveScope(scope, "", ctx)
	}
	return scope.Context()
}
