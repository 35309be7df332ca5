// Package rdf provides the resolver's RDF model: an in-memory triple graph
// built from JSON-LD-shaped documents, serializers for the content-negotiated
// representations (Turtle, N-Triples, JSON-LD, RDF/XML), and parsers for the
// external graphs the legacy routes serve.
package rdf

import "strings"

// TermKind discriminates the object position of a triple.
type TermKind int

const (
	// IRITerm is a resource reference.
	IRITerm TermKind = iota
	// LiteralTerm is a (possibly typed or language-tagged) literal value.
	LiteralTerm
	// BlankTerm is an anonymous node.
	BlankTerm
)

// Term is a triple object.
type Term struct {
	Value    string
	Kind     TermKind
	Language string
	Datatype string
}

// IRI returns an IRI term.
func IRI(value string) Term { return Term{Value: value, Kind: IRITerm} }

// Literal returns a plain literal term.
func Literal(value string) Term { return Term{Value: value, Kind: LiteralTerm} }

// Triple is one statement. Subject and Predicate are absolute IRIs (or
// "_:"-prefixed blank node labels in the subject position).
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

// Graph is an ordered collection of triples. Insertion order is preserved
// so serializations are stable.
type Graph struct {
	triples []Triple
}

// NewGraph creates an empty graph.
func NewGraph() *Graph { return &Graph{} }

// Add appends a triple.
func (g *Graph) Add(subject, predicate string, object Term) {
	g.triples = append(g.triples, Triple{Subject: subject, Predicate: predicate, Object: object})
}

// AddIRI appends a triple with an IRI object.
func (g *Graph) AddIRI(subject, predicate, object string) {
	g.Add(subject, predicate, IRI(object))
}

// AddLiteral appends a triple with a plain literal object.
func (g *Graph) AddLiteral(subject, predicate, value string) {
	g.Add(subject, predicate, Literal(value))
}

// Triples returns the graph's statements in insertion order.
func (g *Graph) Triples() []Triple { return g.triples }

// Len returns the number of statements.
func (g *Graph) Len() int { return len(g.triples) }

// Merge appends every triple of other.
func (g *Graph) Merge(other *Graph) {
	if other != nil {
		g.triples = append(g.triples, other.triples...)
	}
}

// SubjectWithType returns the first subject carrying rdf:type typeIRI.
func (g *Graph) SubjectWithType(typeIRI string) (string, bool) {
	for _, t := range g.triples {
		if t.Predicate == RDFType && t.Object.Kind == IRITerm && t.Object.Value == typeIRI {
			return t.Subject, true
		}
	}
	return "", false
}

// Value returns the first object under (subject, predicate).
func (g *Graph) Value(subject, predicate string) (Term, bool) {
	for _, t := range g.triples {
		if t.Subject == subject && t.Predicate == predicate {
			return t.Object, true
		}
	}
	return Term{}, false
}

// ValueString returns the first object value under (subject, predicate),
// or "".
func (g *Graph) ValueString(subject, predicate string) string {
	term, _ := g.Value(subject, predicate)
	return term.Value
}

// Objects returns every object under (subject, predicate).
func (g *Graph) Objects(subject, predicate string) []Term {
	var out []Term
	for _, t := range g.triples {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}

// Subjects returns every subject with (predicate, object IRI).
func (g *Graph) Subjects(predicate, objectIRI string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range g.triples {
		if t.Predicate == predicate && t.Object.Kind == IRITerm && t.Object.Value == objectIRI {
			if _, dup := seen[t.Subject]; !dup {
				seen[t.Subject] = struct{}{}
				out = append(out, t.Subject)
			}
		}
	}
	return out
}

// subjects returns distinct subjects in first-seen order.
func (g *Graph) subjects() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range g.triples {
		if _, dup := seen[t.Subject]; !dup {
			seen[t.Subject] = struct{}{}
			out = append(out, t.Subject)
		}
	}
	return out
}

// HTMLAble reports whether the graph has a subject a human-readable view
// exists for: an ontology, a concept scheme, or a dataset.
func (g *Graph) HTMLAble() bool {
	for _, typeIRI := range []string{OWLOntology, SKOSConceptScheme, DCATDataset} {
		if _, ok := g.SubjectWithType(typeIRI); ok {
			return true
		}
	}
	return false
}

// splitIRI splits an IRI into a namespace and local name at the last '#'
// or '/'. Used for prefix compaction.
func splitIRI(iri string) (ns, local string) {
	idx := strings.LastIndexAny(iri, "#/")
	if idx < 0 || idx == len(iri)-1 {
		return iri, ""
	}
	return iri[:idx+1], iri[idx+1:]
}
