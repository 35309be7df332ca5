package rdf

import (
	"fmt"
	"strings"
)

// Format specifies a concrete RDF serialization.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"

	// FormatRDFXML produces RDF/XML (.rdf) output.
	FormatRDFXML Format = "rdfxml"
)

// FormatInfo provides metadata about a serialization format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle:   {Name: FormatTurtle, MIMEType: "text/turtle", Extension: ".ttl"},
	FormatNTriples: {Name: FormatNTriples, MIMEType: "application/n-triples", Extension: ".nt"},
	FormatJSONLD:   {Name: FormatJSONLD, MIMEType: "application/ld+json", Extension: ".jsonld"},
	FormatRDFXML:   {Name: FormatRDFXML, MIMEType: "application/rdf+xml", Extension: ".rdf"},
}

// FormatForMediaType maps a requested media type to a serialization
// format. Unsupported media types report false; callers fall through to
// the next preferred type rather than failing.
func FormatForMediaType(mediaType string) (Format, bool) {
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "text/turtle", "application/x-turtle":
		return FormatTurtle, true
	case "application/n-triples", "text/plain":
		return FormatNTriples, true
	case "application/ld+json", "application/json":
		return FormatJSONLD, true
	case "application/rdf+xml", "application/xml", "text/xml":
		return FormatRDFXML, true
	default:
		return "", false
	}
}

// Serialize writes the graph in the given format.
func Serialize(g *Graph, format Format) ([]byte, error) {
	switch format {
	case FormatTurtle:
		return toTurtle(g), nil
	case FormatNTriples:
		return toNTriples(g), nil
	case FormatJSONLD:
		return toJSONLD(g)
	case FormatRDFXML:
		return toRDFXML(g), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// prefixFor returns the reverse lookup of the default context: namespace
// IRI to prefix.
func prefixFor() map[string]string {
	out := make(map[string]string, len(DefaultContext))
	for prefix, ns := range DefaultContext {
		out[ns] = prefix
	}
	return out
}

// localNameOK reports whether local can appear after a prefix in a
// compact IRI.
func localNameOK(local string) bool {
	if local == "" {
		return false
	}
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// compact shortens an IRI to prefix:local against the default context, or
// reports false.
func compact(iri string, reverse map[string]string) (string, bool) {
	ns, local := splitIRI(iri)
	prefix, ok := reverse[ns]
	if !ok || !localNameOK(local) {
		return "", false
	}
	return prefix + ":" + local, true
}
