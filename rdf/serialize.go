package rdf

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// toTurtle serializes the graph as Turtle: prefix directives for the
// namespaces actually used, then one block per subject with ";"-separated
// predicates and ","-separated objects.
func toTurtle(g *Graph) []byte {
	reverse := prefixFor()
	used := usedPrefixes(g, reverse)

	var sb strings.Builder
	for _, prefix := range used {
		sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, DefaultContext[prefix]))
	}
	if len(used) > 0 {
		sb.WriteString("\n")
	}

	for _, subject := range g.subjects() {
		sb.WriteString(turtleRef(subject, reverse))
		sb.WriteString("\n")

		preds := predicatesOf(g, subject)
		for i, pred := range preds {
			sb.WriteString("    ")
			sb.WriteString(turtleRef(pred, reverse))
			sb.WriteString(" ")
			objects := g.Objects(subject, pred)
			for j, o := range objects {
				sb.WriteString(turtleTerm(o, reverse))
				if j < len(objects)-1 {
					sb.WriteString(", ")
				}
			}
			if i < len(preds)-1 {
				sb.WriteString(" ;\n")
			} else {
				sb.WriteString(" .\n")
			}
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// toNTriples serializes the graph line by line with absolute IRIs.
func toNTriples(g *Graph) []byte {
	var sb strings.Builder
	for _, t := range g.Triples() {
		sb.WriteString(ntRef(t.Subject))
		sb.WriteString(" ")
		sb.WriteString(ntRef(t.Predicate))
		sb.WriteString(" ")
		switch t.Object.Kind {
		case IRITerm:
			sb.WriteString(ntRef(t.Object.Value))
		default:
			sb.WriteString(literalString(t.Object))
		}
		sb.WriteString(" .\n")
	}
	return []byte(sb.String())
}

// toJSONLD serializes the graph as compacted JSON-LD: the default context
// plus one node object per subject, under @graph when there is more than
// one subject.
func toJSONLD(g *Graph) ([]byte, error) {
	reverse := prefixFor()

	nodes := make([]map[string]any, 0, 1)
	for _, subject := range g.subjects() {
		node := map[string]any{"@id": subject}
		for _, pred := range predicatesOf(g, subject) {
			objects := g.Objects(subject, pred)
			if pred == RDFType {
				types := make([]any, 0, len(objects))
				for _, o := range objects {
					types = append(types, compactOr(o.Value, reverse))
				}
				node["@type"] = singleOrList(types)
				continue
			}
			values := make([]any, 0, len(objects))
			for _, o := range objects {
				values = append(values, jsonldValue(o, reverse))
			}
			node[compactOr(pred, reverse)] = singleOrList(values)
		}
		nodes = append(nodes, node)
	}

	context := make(map[string]any, len(DefaultContext))
	for prefix, ns := range DefaultContext {
		context[prefix] = ns
	}

	var doc map[string]any
	if len(nodes) == 1 {
		doc = nodes[0]
		doc["@context"] = context
	} else {
		graph := make([]any, len(nodes))
		for i, n := range nodes {
			graph[i] = n
		}
		doc = map[string]any{"@context": context, "@graph": graph}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// toRDFXML serializes the graph as RDF/XML with one rdf:Description per
// subject. Predicates outside the default context get generated ns
// prefixes in the document header.
func toRDFXML(g *Graph) []byte {
	reverse := prefixFor()

	// Collect the namespace of every predicate, generating prefixes for
	// those the default context doesn't cover: RDF/XML property elements
	// must be QNames.
	extra := make(map[string]string)
	for _, t := range g.Triples() {
		ns, local := splitIRI(t.Predicate)
		if !localNameOK(local) {
			continue
		}
		if _, known := reverse[ns]; !known {
			if _, seen := extra[ns]; !seen {
				extra[ns] = fmt.Sprintf("ns%d", len(extra)+1)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	sb.WriteString("<rdf:RDF")
	prefixes := make([]string, 0, len(DefaultContext))
	for prefix := range DefaultContext {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		sb.WriteString(fmt.Sprintf("\n    xmlns:%s=%q", prefix, DefaultContext[prefix]))
	}
	extraNS := make([]string, 0, len(extra))
	for ns := range extra {
		extraNS = append(extraNS, ns)
	}
	sort.Strings(extraNS)
	for _, ns := range extraNS {
		sb.WriteString(fmt.Sprintf("\n    xmlns:%s=%q", extra[ns], ns))
		reverse[ns] = extra[ns]
	}
	sb.WriteString(">\n")

	for _, subject := range g.subjects() {
		sb.WriteString(fmt.Sprintf("  <rdf:Description rdf:about=%q>\n", subject))
		for _, pred := range predicatesOf(g, subject) {
			qname, ok := compact(pred, reverse)
			if !ok {
				continue
			}
			for _, o := range g.Objects(subject, pred) {
				switch o.Kind {
				case IRITerm:
					sb.WriteString(fmt.Sprintf("    <%s rdf:resource=%q/>\n", qname, o.Value))
				default:
					attrs := ""
					if o.Language != "" {
						attrs = fmt.Sprintf(" xml:lang=%q", o.Language)
					} else if o.Datatype != "" {
						attrs = fmt.Sprintf(" rdf:datatype=%q", o.Datatype)
					}
					sb.WriteString(fmt.Sprintf("    <%s%s>%s</%s>\n", qname, attrs, xmlEscape(o.Value), qname))
				}
			}
		}
		sb.WriteString("  </rdf:Description>\n")
	}
	sb.WriteString("</rdf:RDF>\n")
	return []byte(sb.String())
}

// predicatesOf returns the subject's distinct predicates, rdf:type first,
// the rest in first-seen order.
func predicatesOf(g *Graph, subject string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range g.Triples() {
		if t.Subject != subject {
			continue
		}
		if _, dup := seen[t.Predicate]; dup {
			continue
		}
		seen[t.Predicate] = struct{}{}
		out = append(out, t.Predicate)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i] == RDFType && out[j] != RDFType
	})
	return out
}

// usedPrefixes returns the sorted default-context prefixes the graph
// actually references.
func usedPrefixes(g *Graph, reverse map[string]string) []string {
	set := make(map[string]struct{})
	note := func(iri string) {
		if qname, ok := compact(iri, reverse); ok {
			set[strings.SplitN(qname, ":", 2)[0]] = struct{}{}
		}
	}
	for _, t := range g.Triples() {
		note(t.Predicate)
		if t.Object.Kind == IRITerm {
			note(t.Object.Value)
		}
		if t.Object.Datatype != "" {
			note(t.Object.Datatype)
		}
	}
	out := make([]string, 0, len(set))
	for prefix := range set {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

func turtleRef(iri string, reverse map[string]string) string {
	if qname, ok := compact(iri, reverse); ok {
		return qname
	}
	return "<" + iri + ">"
}

func turtleTerm(o Term, reverse map[string]string) string {
	switch o.Kind {
	case IRITerm:
		return turtleRef(o.Value, reverse)
	default:
		s := literalString(o)
		// Compact a datatype qname if the plain renderer used the long form.
		if o.Datatype != "" && o.Language == "" {
			if qname, ok := compact(o.Datatype, reverse); ok {
				return quoteLiteral(o.Value) + "^^" + qname
			}
		}
		return s
	}
}

func compactOr(iri string, reverse map[string]string) string {
	if qname, ok := compact(iri, reverse); ok {
		return qname
	}
	return iri
}

func jsonldValue(o Term, reverse map[string]string) any {
	switch o.Kind {
	case IRITerm:
		return map[string]any{"@id": o.Value}
	default:
		if o.Language != "" {
			return map[string]any{"@value": o.Value, "@language": o.Language}
		}
		if o.Datatype != "" {
			return map[string]any{"@value": o.Value, "@type": compactOr(o.Datatype, reverse)}
		}
		return o.Value
	}
}

func singleOrList(values []any) any {
	if len(values) == 1 {
		return values[0]
	}
	return values
}

func ntRef(iri string) string {
	if strings.HasPrefix(iri, "_:") {
		return iri
	}
	return "<" + iri + ">"
}

func literalString(o Term) string {
	s := quoteLiteral(o.Value)
	if o.Language != "" {
		return s + "@" + o.Language
	}
	if o.Datatype != "" {
		return s + "^^<" + o.Datatype + ">"
	}
	return s
}

func quoteLiteral(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(v) + `"`
}

func xmlEscape(v string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(v)
}
