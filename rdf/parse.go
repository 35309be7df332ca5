package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	knakk "github.com/knakk/rdf"
)

// Parse reads a graph serialized in the given format. Turtle, N-Triples,
// and RDF/XML decode through knakk/rdf; JSON-LD decodes as a document
// against the default context.
func Parse(r io.Reader, format Format) (*Graph, error) {
	if format == FormatJSONLD {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read json-ld: %w", err)
		}
		return ParseJSONLD(data)
	}

	var kf knakk.Format
	switch format {
	case FormatTurtle:
		kf = knakk.Turtle
	case FormatNTriples:
		kf = knakk.NTriples
	case FormatRDFXML:
		kf = knakk.RDFXML
	default:
		return nil, fmt.Errorf("unsupported parse format: %s", format)
	}

	dec := knakk.NewTripleDecoder(r, kf)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	g := NewGraph()
	for _, t := range triples {
		g.Add(refString(t.Subj.Type(), t.Subj.String()), t.Pred.String(), termFromKnakk(t.Obj))
	}
	return g, nil
}

// ParseJSONLD converts JSON-LD bytes to a graph. Both single node objects
// and @graph arrays are handled; every node is interpreted against the
// document context over the default one.
func ParseJSONLD(data []byte) (*Graph, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json-ld: %w", err)
	}
	nodes, ok := doc["@graph"].([]any)
	if !ok {
		return FromDocument(doc)
	}
	g := NewGraph()
	for _, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if _, has := node["@context"]; !has {
			if ctx, ok := doc["@context"]; ok {
				node["@context"] = ctx
			}
		}
		ng, err := FromDocument(node)
		if err != nil {
			continue
		}
		g.Merge(ng)
	}
	return g, nil
}

func refString(tt knakk.TermType, s string) string {
	if tt == knakk.TermBlank && !strings.HasPrefix(s, "_:") {
		return "_:" + s
	}
	return s
}

func termFromKnakk(obj knakk.Object) Term {
	switch obj.Type() {
	case knakk.TermIRI:
		return IRI(obj.String())
	case knakk.TermBlank:
		return Term{Value: refString(knakk.TermBlank, obj.String()), Kind: BlankTerm}
	default:
		term := Literal(obj.String())
		if lit, ok := obj.(knakk.Literal); ok {
			term.Language = lit.Lang()
			if dt := lit.DataType.String(); dt != "" && dt != NSXSD+"string" && dt != NSRDF+"langString" {
				term.Datatype = dt
			}
		}
		return term
	}
}
