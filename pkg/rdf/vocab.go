package rdf

import "strings"

// Reserved keys of the tree format
const (
	KeywordID        = "@id"
	KeywordType      = "@type"
	KeywordValue     = "@value"
	KeywordList      = "@list"
	KeywordIncluded  = "@included"
	KeywordLanguage  = "@language"
	KeywordDirection = "@direction"
	KeywordContext   = "@context"
	KeywordBase      = "@base"
	KeywordVocab     = "@vocab"
	KeywordJSON      = "@json"

	// KeywordSigil starts every reserved key
	KeywordSigil = "@"
	// BlankPrefix starts every blank node identifier
	BlankPrefix = "_:"
)

// Well-known IRIs
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFType       = RDFNamespace + "type"
	RDFJSON       = RDFNamespace + "JSON"
	RDFFirst      = RDFNamespace + "first"
	RDFRest       = RDFNamespace + "rest"
	RDFNil        = RDFNamespace + "nil"
	RDFLangStr    = RDFNamespace + "langString"
	RDFDirLangStr = RDFNamespace + "dirLangString"

	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	XSDString    = XSDNamespace + "string"
	XSDInteger   = XSDNamespace + "integer"
	XSDDouble    = XSDNamespace + "double"
	XSDBoolean   = XSDNamespace + "boolean"
)

// IsKeyword reports whether key is reserved
func IsKeyword(key string) bool {
	return strings.HasPrefix(key, KeywordSigil)
}

// IsBlankLabel reports whether id names a blank node
func IsBlankLabel(id string) bool {
	return strings.HasPrefix(id, BlankPrefix)
}
