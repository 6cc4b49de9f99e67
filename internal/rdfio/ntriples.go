package rdfio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/terse/pkg/rdf"
)

// ContentTypeNTriples is the MIME type of N-Triples statements
const ContentTypeNTriples = "application/n-triples"

// ParseNTriples reads N-Triples statements. Subjects and predicates are IRIs
// or "_:" labels; objects are reference objects or literal value objects
// with their lexical form as the value. PREFIX directives and bare numeric
// objects are accepted as a convenience.
func ParseNTriples(reader io.Reader) ([]rdf.Triple, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	p := &ntParser{
		input:    string(data),
		length:   len(data),
		prefixes: make(map[string]string),
	}
	return p.parse()
}

// NTriplesParser reads N-Triples as a flattened tree document: one node
// object per subject, in order of first appearance
type NTriplesParser struct{}

func (p *NTriplesParser) ContentType() string {
	return ContentTypeNTriples
}

func (p *NTriplesParser) Parse(reader io.Reader) (any, error) {
	triples, err := ParseNTriples(reader)
	if err != nil {
		return nil, err
	}
	return TriplesDocument(triples), nil
}

// TriplesDocument groups triples by subject into node objects
func TriplesDocument(triples []rdf.Triple) []any {
	nodes := make(map[string]*rdf.Object)
	doc := []any{}
	for _, t := range triples {
		node, ok := nodes[t.Subject]
		if !ok {
			node = rdf.NewReference(t.Subject)
			nodes[t.Subject] = node
			doc = append(doc, node)
		}
		values, _ := node.Get(t.Predicate)
		items, _ := values.([]any)
		node.Set(t.Predicate, append(items, t.Object))
	}
	return doc
}

// FlattenTriples rewrites triples into plain statements by serializing them
// canonically and reading the result back: lists become rdf:first/rdf:rest
// chains and literals carry canonical lexical forms.
func FlattenTriples(triples []rdf.Triple) ([]rdf.Triple, error) {
	return ParseNTriples(strings.NewReader(rdf.SerializeTriplesCanonical(triples)))
}

type ntParser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
}

func (p *ntParser) parse() ([]rdf.Triple, error) {
	var triples []rdf.Triple

	for p.pos < p.length {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		if p.matchKeyword("@prefix") || p.matchKeyword("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return nil, p.errorf("%w", err)
			}
			continue
		}

		triple, err := p.parseTriple()
		if err != nil {
			return nil, p.errorf("%w", err)
		}
		triples = append(triples, triple)
	}

	return triples, nil
}

func (p *ntParser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.input[:min(p.pos, p.length)], "\n")
	return fmt.Errorf("line %d: %w", line, fmt.Errorf(format, args...))
}

func (p *ntParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *ntParser) matchKeyword(keyword string) bool {
	end := p.pos + len(keyword)
	if end > p.length || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	return end == p.length || isSpace(p.input[end])
}

func (p *ntParser) parsePrefix() error {
	for p.pos < p.length && !isSpace(p.input[p.pos]) {
		p.pos++
	}
	p.skipWhitespaceAndComments()

	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= p.length {
		return fmt.Errorf("expected ':' after prefix name")
	}
	name := strings.TrimSpace(p.input[start:p.pos])
	p.pos++
	p.skipWhitespaceAndComments()

	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("error parsing prefix IRI: %w", err)
	}
	p.prefixes[name] = iri

	p.skipWhitespaceAndComments()
	if p.pos < p.length && p.input[p.pos] == '.' {
		p.pos++
	}
	return nil
}

// parseTriple parses: subject predicate object .
func (p *ntParser) parseTriple() (rdf.Triple, error) {
	subject, err := p.parseRef()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("error parsing subject: %w", err)
	}
	p.skipWhitespaceAndComments()

	predicate, err := p.parseRef()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("error parsing predicate: %w", err)
	}
	if rdf.IsBlankLabel(predicate) {
		return rdf.Triple{}, fmt.Errorf("predicate must be an IRI, got %s", predicate)
	}
	p.skipWhitespaceAndComments()

	object, err := p.parseObject()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("error parsing object: %w", err)
	}
	p.skipWhitespaceAndComments()

	if p.pos >= p.length || p.input[p.pos] != '.' {
		if p.pos < p.length && (p.input[p.pos] == '<' || p.input[p.pos] == '_') {
			return rdf.Triple{}, fmt.Errorf("named graphs are not supported")
		}
		return rdf.Triple{}, fmt.Errorf("expected '.' at end of triple")
	}
	p.pos++

	return rdf.NewTriple(subject, predicate, object), nil
}

// parseRef parses a subject or predicate: an IRI, blank node or prefixed name
func (p *ntParser) parseRef() (string, error) {
	if p.pos >= p.length {
		return "", fmt.Errorf("unexpected end of input")
	}
	switch ch := p.input[p.pos]; {
	case ch == '<':
		return p.parseIRI()
	case ch == '_':
		return p.parseBlankNode()
	case isLetter(ch):
		return p.parsePrefixedName()
	default:
		return "", fmt.Errorf("unexpected character %q", ch)
	}
}

func (p *ntParser) parseObject() (any, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch ch := p.input[p.pos]; {
	case ch == '"':
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return lit.Object(), nil
	case ch == '-' || ch == '+' || (ch >= '0' && ch <= '9'):
		lit, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return lit.Object(), nil
	default:
		ref, err := p.parseRef()
		if err != nil {
			return nil, err
		}
		return rdf.NewReference(ref), nil
	}
}

func (p *ntParser) parseIRI() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}
	p.pos++

	var iri strings.Builder
	for p.pos < p.length && p.input[p.pos] != '>' {
		if p.input[p.pos] == '\\' {
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return "", err
			}
			iri.WriteRune(r)
			continue
		}
		iri.WriteByte(p.input[p.pos])
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unclosed IRI")
	}
	p.pos++

	return iri.String(), nil
}

func (p *ntParser) parseBlankNode() (string, error) {
	if !strings.HasPrefix(p.input[p.pos:], rdf.BlankPrefix) {
		return "", fmt.Errorf("expected '_:' at start of blank node")
	}
	start := p.pos
	p.pos += len(rdf.BlankPrefix)
	for p.pos < p.length && !isSpace(p.input[p.pos]) && p.input[p.pos] != '<' {
		// A trailing '.' ends the statement, not the label
		if p.input[p.pos] == '.' && (p.pos+1 >= p.length || isSpace(p.input[p.pos+1])) {
			break
		}
		p.pos++
	}
	if p.pos == start+len(rdf.BlankPrefix) {
		return "", fmt.Errorf("empty blank node label")
	}
	return p.input[start:p.pos], nil
}

func (p *ntParser) parseLiteral() (*rdf.Literal, error) {
	p.pos++ // opening quote

	var value strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		ch := p.input[p.pos]
		if ch != '\\' {
			value.WriteByte(ch)
			p.pos++
			continue
		}
		if p.pos+1 >= p.length {
			return nil, fmt.Errorf("unexpected end of input in escape sequence")
		}
		switch esc := p.input[p.pos+1]; esc {
		case 'u', 'U':
			r, err := p.parseUnicodeEscape()
			if err != nil {
				return nil, err
			}
			value.WriteRune(r)
			continue
		case 'n':
			value.WriteByte('\n')
		case 't':
			value.WriteByte('\t')
		case 'r':
			value.WriteByte('\r')
		case 'b':
			value.WriteByte('\b')
		case 'f':
			value.WriteByte('\f')
		default:
			value.WriteByte(esc)
		}
		p.pos += 2
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unclosed string literal")
	}
	p.pos++ // closing quote

	lit := &rdf.Literal{Value: value.String()}
	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && !isSpace(p.input[p.pos]) && p.input[p.pos] != '.' {
			p.pos++
		}
		language, direction, hasDirection := strings.Cut(p.input[start:p.pos], "--")
		if language == "" {
			return nil, fmt.Errorf("empty language tag")
		}
		lit.Language = &language
		if hasDirection {
			lit.Direction = &direction
		}
	} else if strings.HasPrefix(p.input[p.pos:], "^^") {
		p.pos += 2
		datatype, err := p.parseRef()
		if err != nil {
			return nil, fmt.Errorf("error parsing datatype: %w", err)
		}
		if datatype != rdf.XSDString {
			lit.Type = datatype
		}
	}
	return lit, nil
}

// parseUnicodeEscape decodes \uXXXX or \UXXXXXXXX at the current position
func (p *ntParser) parseUnicodeEscape() (rune, error) {
	if p.pos+1 >= p.length {
		return 0, fmt.Errorf("unexpected end of input in escape sequence")
	}
	size := 4
	switch p.input[p.pos+1] {
	case 'u':
	case 'U':
		size = 8
	default:
		return 0, fmt.Errorf("invalid escape sequence \\%c", p.input[p.pos+1])
	}
	start := p.pos + 2
	if start+size > p.length {
		return 0, fmt.Errorf("truncated unicode escape")
	}
	code, err := strconv.ParseUint(p.input[start:start+size], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid unicode escape: %w", err)
	}
	p.pos = start + size
	return rune(code), nil
}

func (p *ntParser) parseNumber() (*rdf.Literal, error) {
	start := p.pos
	if p.input[p.pos] == '-' || p.input[p.pos] == '+' {
		p.pos++
	}

	hasDigits := false
	isDouble := false
scan:
	for p.pos < p.length {
		ch := p.input[p.pos]
		switch {
		case ch >= '0' && ch <= '9':
			hasDigits = true
		case ch == '.' && p.pos+1 < p.length && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9':
			isDouble = true
		case (ch == 'e' || ch == 'E') && hasDigits:
			isDouble = true
			if p.pos+1 < p.length && (p.input[p.pos+1] == '-' || p.input[p.pos+1] == '+') {
				p.pos++
			}
		default:
			break scan
		}
		p.pos++
	}
	if !hasDigits {
		return nil, fmt.Errorf("invalid number at position %d", start)
	}

	datatype := rdf.XSDInteger
	if isDouble {
		datatype = rdf.XSDDouble
	}
	return &rdf.Literal{Value: p.input[start:p.pos], Type: datatype}, nil
}

func (p *ntParser) parsePrefixedName() (string, error) {
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		if isSpace(p.input[p.pos]) || p.input[p.pos] == '.' {
			return "", fmt.Errorf("invalid character in prefixed name")
		}
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	prefix := p.input[start:p.pos]
	p.pos++

	localStart := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if isSpace(ch) || ch == '<' || ch == '>' || ch == '"' {
			break
		}
		if ch == '.' && (p.pos+1 >= p.length || isSpace(p.input[p.pos+1])) {
			break
		}
		p.pos++
	}

	iri, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix: %s", prefix)
	}
	return iri + p.input[localStart:p.pos], nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
