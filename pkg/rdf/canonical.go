package rdf

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SerializeTriplesCanonical serializes triples to canonical N-Triples format (C14N)
// @list objects expand to rdf:first/rdf:rest chains with fresh "_:l<N>" blank
// nodes, and bare nested arrays contribute one statement per item.
// Note: Canonical form specifies representation, NOT ordering. Input order is preserved.
func SerializeTriplesCanonical(triples []Triple) string {
	if len(triples) == 0 {
		return ""
	}

	w := &canonicalWriter{}
	for _, triple := range triples {
		w.writeStatement(triple.Subject, triple.Predicate, triple.Object)
	}
	return w.builder.String()
}

type canonicalWriter struct {
	builder   strings.Builder
	nextBlank int
}

func (w *canonicalWriter) writeStatement(subject, predicate string, object any) {
	// Bare arrays fan out into one statement per item
	if items, ok := object.([]any); ok {
		for _, item := range items {
			w.writeStatement(subject, predicate, item)
		}
		return
	}

	term := w.objectTerm(object)
	w.builder.WriteString(serializeRefCanonical(subject))
	w.builder.WriteString(" ")
	w.builder.WriteString(serializeRefCanonical(predicate))
	w.builder.WriteString(" ")
	w.builder.WriteString(term)
	w.builder.WriteString(" .\n")
}

// objectTerm renders an object position term, emitting list chains first
func (w *canonicalWriter) objectTerm(object any) string {
	if id, ok := ReferenceID(object); ok {
		return serializeRefCanonical(id)
	}
	if items, ok := Lookup(object, KeywordList); ok {
		list, _ := items.([]any)
		return w.writeList(list)
	}
	if _, ok := Lookup(object, KeywordValue); ok {
		return serializeLiteralCanonical(literalFromTree(object))
	}
	// Anything else is opaque JSON
	return serializeLiteralCanonical(&Literal{Value: object, Type: RDFJSON})
}

func (w *canonicalWriter) writeList(items []any) string {
	if len(items) == 0 {
		return serializeRefCanonical(RDFNil)
	}

	labels := make([]string, len(items))
	for i := range items {
		labels[i] = fmt.Sprintf("_:l%d", w.nextBlank)
		w.nextBlank++
	}
	for i, item := range items {
		rest := RDFNil
		if i+1 < len(labels) {
			rest = labels[i+1]
		}
		w.writeStatement(labels[i], RDFFirst, item)
		w.writeStatement(labels[i], RDFRest, NewReference(rest))
	}
	return labels[0]
}

func literalFromTree(object any) *Literal {
	lit := &Literal{}
	lit.Value, _ = Lookup(object, KeywordValue)
	if v, ok := Lookup(object, KeywordType); ok {
		lit.Type, _ = v.(string)
	}
	lit.Language = optionalString(object, KeywordLanguage)
	lit.Direction = optionalString(object, KeywordDirection)
	return lit
}

// optionalString returns the string at key, or nil when it is missing or
// not a string
func optionalString(object any, key string) *string {
	v, _ := Lookup(object, key)
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func serializeRefCanonical(ref string) string {
	if IsBlankLabel(ref) {
		return ref
	}
	return fmt.Sprintf("<%s>", escapeIRICanonical(ref))
}

// serializeLiteralCanonical serializes a literal in canonical format
func serializeLiteralCanonical(lit *Literal) string {
	lexical, datatype := lexicalForm(lit)
	escaped := escapeStringCanonical(lexical)

	// Language tag with optional directionality
	if lit.Lang() != "" && lit.Type == "" {
		// Normalize language tag to lowercase
		langTag := strings.ToLower(lit.Lang())

		// Handle directionality (e.g., @en--ltr)
		if lit.Dir() != "" {
			// Normalize direction to lowercase
			direction := strings.ToLower(lit.Dir())
			return fmt.Sprintf(`"%s"@%s--%s`, escaped, langTag, direction)
		}
		return fmt.Sprintf(`"%s"@%s`, escaped, langTag)
	}

	// Omit xsd:string datatype in canonical format (it's the default)
	if datatype != "" && datatype != XSDString {
		return fmt.Sprintf(`"%s"^^<%s>`, escaped, escapeIRICanonical(datatype))
	}

	// Plain literal (xsd:string is implicit)
	return fmt.Sprintf(`"%s"`, escaped)
}

// lexicalForm maps a JSON value onto an RDF lexical form and datatype
func lexicalForm(lit *Literal) (string, string) {
	if lit.Type == RDFJSON {
		return jsonLexical(lit.Value), RDFJSON
	}

	switch v := lit.Value.(type) {
	case string:
		return v, lit.Type
	case bool:
		return strconv.FormatBool(v), orDefault(lit.Type, XSDBoolean)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10), orDefault(lit.Type, XSDInteger)
		}
		f, err := v.Float64()
		if err != nil {
			return v.String(), orDefault(lit.Type, XSDDouble)
		}
		return numberLexical(f, lit.Type)
	case float64:
		return numberLexical(v, lit.Type)
	case float32:
		return numberLexical(float64(v), lit.Type)
	case int:
		return strconv.Itoa(v), orDefault(lit.Type, XSDInteger)
	case int64:
		return strconv.FormatInt(v, 10), orDefault(lit.Type, XSDInteger)
	case uint64:
		return strconv.FormatUint(v, 10), orDefault(lit.Type, XSDInteger)
	default:
		return jsonLexical(v), orDefault(lit.Type, RDFJSON)
	}
}

func numberLexical(f float64, datatype string) (string, string) {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 && datatype != XSDDouble {
		return strconv.FormatFloat(f, 'f', -1, 64), orDefault(datatype, XSDInteger)
	}
	// Canonical xsd:double: mantissa "E" exponent without sign padding
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mantissa, exponent, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	exp, err := strconv.Atoi(exponent)
	if err != nil {
		return s, orDefault(datatype, XSDDouble)
	}
	return mantissa + "E" + strconv.Itoa(exp), orDefault(datatype, XSDDouble)
}

func jsonLexical(v any) string {
	text, err := MarshalTree(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(text)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// escapeStringCanonical escapes a string value for canonical N-Triples/N-Quads output
// Implements RDF 1.2 escape rules:
// - Special named escapes: \t \b \n \r \f \" \\
// - Unicode: \uXXXX for U+0000 to U+FFFF, \UXXXXXXXX for higher
func escapeStringCanonical(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\t':
			builder.WriteString(`\t`)
		case '\b':
			builder.WriteString(`\b`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\f':
			builder.WriteString(`\f`)
		case '"':
			builder.WriteString(`\"`)
		case '\\':
			builder.WriteString(`\\`)
		default:
			// Control characters, DEL and the noncharacters U+FFFE/U+FFFF use \uXXXX
			if r < 0x20 || r == 0x7F || (r >= 0xFFFE && r <= 0xFFFF) {
				builder.WriteString(fmt.Sprintf(`\u%04X`, r))
			} else {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}

// escapeIRICanonical escapes an IRI for canonical output
// Characters that may not appear between angle brackets use \uXXXX
func escapeIRICanonical(iri string) string {
	if !strings.ContainsAny(iri, "<>\"{}|^`\\ ") {
		return iri
	}
	var builder strings.Builder
	for _, r := range iri {
		if strings.ContainsRune("<>\"{}|^`\\ ", r) {
			builder.WriteString(fmt.Sprintf(`\u%04X`, r))
		} else {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
