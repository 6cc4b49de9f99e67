package rdf

import (
	"net/url"
	"strings"
)

// ResolveIRI resolves a reference against a base IRI according to RFC 3986.
// With no base the reference is returned unchanged. An empty reference
// resolves to the base without its fragment, and a reference ending in "#"
// keeps its empty fragment.
func ResolveIRI(ref, base string) string {
	if base == "" {
		return ref
	}
	if ref == "" {
		return stripFragment(base)
	}

	resolved := resolveReference(ref, base)
	if strings.HasSuffix(ref, "#") && !strings.HasSuffix(resolved, "#") {
		resolved += "#"
	}
	return resolved
}

func resolveReference(ref, base string) string {
	relURL, err := url.Parse(ref)
	if err != nil {
		return concatFallback(ref, base)
	}
	// Absolute references pass through untouched
	if relURL.Scheme != "" {
		return ref
	}

	// The base fragment never takes part in resolution
	baseURL, err := url.Parse(stripFragment(base))
	if err != nil {
		return concatFallback(ref, base)
	}

	return iriString(baseURL.ResolveReference(relURL), ref+base)
}

// iriString renders a resolved URL, putting back the non-ASCII characters
// that url.URL percent-encodes on output. Inputs that already carry encoded
// non-ASCII bytes are rendered as url.URL does.
func iriString(u *url.URL, input string) string {
	out := u.String()
	if !hasNonASCII(input) || hasHighEscape(input) {
		return out
	}
	var sb strings.Builder
	for i := 0; i < len(out); i++ {
		if b, ok := highEscape(out, i); ok {
			sb.WriteByte(b)
			i += 2
			continue
		}
		sb.WriteByte(out[i])
	}
	return sb.String()
}

func hasNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

func hasHighEscape(s string) bool {
	for i := range len(s) {
		if _, ok := highEscape(s, i); ok {
			return true
		}
	}
	return false
}

// highEscape decodes a %XX sequence at i whose byte is outside ASCII
func highEscape(s string, i int) (byte, bool) {
	if s[i] != '%' || i+2 >= len(s) {
		return 0, false
	}
	hi, lo := unhex(s[i+1]), unhex(s[i+2])
	if hi < 0 || lo < 0 || hi < 8 {
		return 0, false
	}
	return byte(hi<<4 | lo), true
}

func unhex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// concatFallback joins a reference onto the base directory when either side
// does not parse as a URL.
func concatFallback(ref, base string) string {
	if strings.HasPrefix(ref, "#") {
		return stripFragment(base) + ref
	}
	base = stripFragment(base)
	if lastSlash := strings.LastIndex(base, "/"); lastSlash >= 0 {
		return base[:lastSlash+1] + ref
	}
	return base + "/" + ref
}

func stripFragment(iri string) string {
	if idx := strings.IndexByte(iri, '#'); idx >= 0 {
		return iri[:idx]
	}
	return iri
}

// hasScheme reports whether the colon at position colon separates a scheme
// from a hierarchical part ("scheme://...").
func hasScheme(token string, colon int) bool {
	return strings.Index(token, "://") == colon
}

// splitAuthority splits a hierarchical IRI into "scheme://authority" and the
// remainder starting at the path. ok is false for IRIs without "://".
func splitAuthority(iri string) (authority, rest string, ok bool) {
	sep := strings.Index(iri, "://")
	if sep <= 0 {
		return "", "", false
	}
	end := len(iri)
	if idx := strings.IndexAny(iri[sep+3:], "/?#"); idx >= 0 {
		end = sep + 3 + idx
	}
	rest = iri[end:]
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return iri[:end], rest, true
}

// directory returns the path of rest up to and including its last "/",
// ignoring any query or fragment.
func directory(rest string) string {
	if idx := strings.IndexAny(rest, "?#"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest[:strings.LastIndex(rest, "/")+1]
}

// Relativize renders iri relative to base for compact output:
//   - different scheme or authority: iri unchanged
//   - same document: "#fragment", or "" when the fragment is empty
//   - iri's directory under base's directory: the remaining suffix, or "."
//   - otherwise: the path-absolute form
//
// An empty base disables relativization.
func Relativize(iri, base string) string {
	if base == "" {
		return iri
	}
	base = stripFragment(base)

	iriAuthority, iriRest, ok := splitAuthority(iri)
	if !ok {
		return iri
	}
	baseAuthority, baseRest, ok := splitAuthority(base)
	if !ok || !strings.EqualFold(iriAuthority, baseAuthority) {
		return iri
	}

	if stripFragment(iriRest) == baseRest {
		if idx := strings.IndexByte(iriRest, '#'); idx >= 0 && idx < len(iriRest)-1 {
			return iriRest[idx:]
		}
		return ""
	}

	baseDir := directory(baseRest)
	if strings.HasPrefix(directory(iriRest), baseDir) {
		if suffix := iriRest[len(baseDir):]; suffix != "" {
			return suffix
		}
		return "."
	}
	return iriRest
}
