package rdf

import (
	"testing"
)

func obj(kv ...any) *Object {
	rv := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		rv.Set(kv[i].(string), kv[i+1])
	}
	return rv
}

func expectExpand(t *testing.T, s *Scope, token any, predicate bool, want string) {
	t.Helper()
	got, ok := s.Expand(token, predicate)
	if !ok {
		t.Fatalf("Expand(%v, %v) failed, want %q", token, predicate, want)
	}
	if got != want {
		t.Errorf("Expand(%v, %v) = %q, want %q", token, predicate, got, want)
	}
}

func expectNoExpand(t *testing.T, s *Scope, token any, predicate bool) {
	t.Helper()
	if got, ok := s.Expand(token, predicate); ok {
		t.Errorf("Expand(%v, %v) = %q, want failure", token, predicate, got)
	}
}

func TestScope_ExpandPrefixed(t *testing.T) {
	s := ResolveScope(nil, "", obj("ex", "http://example.org/"))

	expectExpand(t, s, "ex:thing", false, "http://example.org/thing")
	expectExpand(t, s, "ex:thing", true, "http://example.org/thing")
	expectExpand(t, s, "ex", true, "http://example.org/")
	expectExpand(t, s, "other:thing", true, "other:thing")
}

func TestScope_ExpandSchemeNotTreatedAsPrefix(t *testing.T) {
	s := ResolveScope(nil, "", obj("http", "http://wrong.example/"))

	expectExpand(t, s, "http://example.org/x", true, "http://example.org/x")
}

func TestScope_ExpandVocabulary(t *testing.T) {
	s := ResolveScope(nil, "", obj(KeywordVocab, "http://schema.org/"))

	expectExpand(t, s, "name", true, "http://schema.org/name")
	if s.Vocab() != "http://schema.org/" {
		t.Errorf("Expected vocab http://schema.org/, got %q", s.Vocab())
	}
}

func TestScope_PredicateWithoutVocabularyFails(t *testing.T) {
	s := NewScope("http://example.org/doc", "")

	expectNoExpand(t, s, "name", true)
	expectExpand(t, s, "name", false, "http://example.org/name")
}

func TestScope_ExpandJSONAndNonStrings(t *testing.T) {
	var s *Scope

	expectExpand(t, s, KeywordJSON, false, RDFJSON)
	expectNoExpand(t, s, 42, false)
	expectNoExpand(t, s, nil, true)
}

func TestScope_DisabledPrefix(t *testing.T) {
	parent := ResolveScope(nil, "", obj("ex", "http://example.org/"))
	child := ResolveScope(parent, "", obj("ex", nil))

	expectNoExpand(t, child, "ex", true)
	expectExpand(t, child, "ex:thing", false, "ex:thing")
	expectExpand(t, parent, "ex:thing", false, "http://example.org/thing")
}

func TestScope_BaseResolution(t *testing.T) {
	s := EntryScope("http://example.org/a/doc.json", "", nil)
	s = ResolveScope(s, "", obj(KeywordBase, "sub/", "p", "terms#"))

	if s.Base() != "http://example.org/a/sub/" {
		t.Errorf("Expected base http://example.org/a/sub/, got %q", s.Base())
	}
	expectExpand(t, s, "p:x", true, "http://example.org/a/sub/terms#x")
	expectExpand(t, s, "item", false, "http://example.org/a/sub/item")
}

func TestScope_NullBaseClears(t *testing.T) {
	s := EntryScope("http://example.org/doc.json", "", nil)
	s = ResolveScope(s, "", obj(KeywordBase, nil))

	if s.Base() != "" {
		t.Errorf("Expected base to be cleared, got %q", s.Base())
	}
	expectExpand(t, s, "item", false, "item")
}

func TestScope_VocabOverride(t *testing.T) {
	s := EntryScope("http://example.org/doc.json", "http://fallback.org/", nil)
	expectExpand(t, s, "name", true, "http://fallback.org/name")

	declared := ResolveScope(nil, "http://fallback.org/", obj(KeywordVocab, "http://schema.org/"))
	expectExpand(t, declared, "name", true, "http://schema.org/name")

	cleared := ResolveScope(declared, "", obj(KeywordVocab, nil))
	expectNoExpand(t, cleared, "name", true)
}

func TestScope_ArrayContextsFoldInOrder(t *testing.T) {
	s := ResolveScope(nil, "", []any{
		obj("ex", "http://one.example/"),
		"http://remote.example/context.jsonld",
		obj("ex", "http://two.example/", "other", "http://other.example/"),
	})

	expectExpand(t, s, "ex:x", true, "http://two.example/x")
	expectExpand(t, s, "other:y", true, "http://other.example/y")
}

func TestScope_ResolveDoesNotMutateParent(t *testing.T) {
	parent := ResolveScope(nil, "", obj("ex", "http://example.org/"))
	_ = ResolveScope(parent, "", obj("ex", "http://changed.org/", "new", "http://new.org/"))

	expectExpand(t, parent, "ex:x", true, "http://example.org/x")
	if _, ok := parent.Prefix("new"); ok {
		t.Error("Parent scope should not see the child's prefixes")
	}
}

func TestScope_Context(t *testing.T) {
	s := ResolveScope(nil, "", obj(
		"b", "http://b.example/",
		"a", "http://a.example/",
		KeywordVocab, "http://schema.org/",
	))
	s = ResolveScope(s, "", obj("b", nil, KeywordBase, "http://example.org/"))

	got, err := MarshalTree(s.Context())
	if err != nil {
		t.Fatalf("Failed to encode context: %v", err)
	}
	want := `{"b":null,"a":"http://a.example/","@base":"http://example.org/","@vocab":"http://schema.org/"}`
	if string(got) != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestEffectiveRootContext(t *testing.T) {
	doc := obj(KeywordContext, obj("ex", "terms#"), "ex:name", "x")

	got, err := MarshalTree(EffectiveRootContext(doc, "http://example.org/doc.json", "", nil))
	if err != nil {
		t.Fatalf("Failed to encode context: %v", err)
	}
	want := `{"ex":"http://example.org/terms#","@base":"http://example.org/doc.json"}`
	if string(got) != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	// The rendered context reproduces the scope from an empty start
	s := ResolveScope(nil, "", EffectiveRootContext(doc, "http://example.org/doc.json", "", nil))
	expectExpand(t, s, "ex:name", true, "http://example.org/terms#name")
}
