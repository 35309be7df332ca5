package rdf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EnsureContext merges the default context under the document's @context,
// keeping any document-provided mappings. Called before a document is
// persisted so stored documents are self-describing.
func EnsureContext(doc map[string]any) map[string]any {
	merged := make(map[string]any, len(DefaultContext))
	for prefix, ns := range DefaultContext {
		merged[prefix] = ns
	}
	if existing, ok := doc["@context"].(map[string]any); ok {
		for prefix, ns := range existing {
			merged[prefix] = ns
		}
	}
	doc["@context"] = merged
	return doc
}

// contextFor resolves the prefix table a document is interpreted against:
// the default context overlaid with the document's own @context.
func contextFor(doc map[string]any) map[string]string {
	ctx := make(map[string]string, len(DefaultContext))
	for prefix, ns := range DefaultContext {
		ctx[prefix] = ns
	}
	if extra, ok := doc["@context"].(map[string]any); ok {
		for prefix, ns := range extra {
			if s, ok := ns.(string); ok {
				ctx[prefix] = s
			}
		}
	}
	return ctx
}

// expandIRI expands a compact IRI ("skos:prefLabel") against the context,
// passing absolute IRIs through. Keys that are neither are not statements
// and report false.
func expandIRI(key string, ctx map[string]string) (string, bool) {
	if strings.Contains(key, "://") {
		return key, true
	}
	prefix, local, ok := strings.Cut(key, ":")
	if !ok {
		return "", false
	}
	ns, known := ctx[prefix]
	if !known {
		return "", false
	}
	return ns + local, true
}

// FromDocument converts a JSON-LD-shaped document into triples using the
// document's context over the default one. Keys that do not expand to an
// IRI are ignored rather than invented; arbitrary RDF predicates are not
// statically typed.
func FromDocument(doc map[string]any) (*Graph, error) {
	subject, _ := doc["@id"].(string)
	if subject == "" {
		return nil, fmt.Errorf("document has no @id")
	}
	ctx := contextFor(doc)
	g := NewGraph()

	// @type first, then remaining predicates in sorted order for a stable
	// serialization.
	for _, v := range asValues(doc["@type"]) {
		if s, ok := v.(string); ok {
			if iri, ok := expandIRI(s, ctx); ok {
				g.AddIRI(subject, RDFType, iri)
			}
		}
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		if strings.HasPrefix(k, "@") || strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		predicate, ok := expandIRI(k, ctx)
		if !ok {
			continue
		}
		for _, v := range asValues(doc[k]) {
			if term, ok := termFor(v, ctx); ok {
				g.Add(subject, predicate, term)
			}
		}
	}
	return g, nil
}

// asValues flattens a JSON value into the list of object values it states.
func asValues(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// termFor converts one JSON object value into a triple object.
func termFor(v any, ctx map[string]string) (Term, bool) {
	switch t := v.(type) {
	case string:
		return Literal(t), true
	case bool:
		return Term{Value: strconv.FormatBool(t), Kind: LiteralTerm, Datatype: NSXSD + "boolean"}, true
	case float64:
		if t == float64(int64(t)) {
			return Term{Value: strconv.FormatInt(int64(t), 10), Kind: LiteralTerm, Datatype: NSXSD + "integer"}, true
		}
		return Term{Value: strconv.FormatFloat(t, 'g', -1, 64), Kind: LiteralTerm, Datatype: NSXSD + "decimal"}, true
	case int:
		return Term{Value: strconv.Itoa(t), Kind: LiteralTerm, Datatype: NSXSD + "integer"}, true
	case map[string]any:
		if id, ok := t["@id"].(string); ok {
			if iri, expanded := expandIRI(id, ctx); expanded {
				return IRI(iri), true
			}
			return IRI(id), true
		}
		if value, ok := t["@value"].(string); ok {
			term := Term{Value: value, Kind: LiteralTerm}
			if lang, ok := t["@language"].(string); ok {
				term.Language = lang
			}
			if dt, ok := t["@type"].(string); ok {
				if iri, expanded := expandIRI(dt, ctx); expanded {
					term.Datatype = iri
				}
			}
			return term, true
		}
		return Term{}, false
	default:
		return Term{}, false
	}
}
