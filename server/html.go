package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/polyneme/termeric/rdf"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type termCard struct {
	URL        string
	Label      string
	Definition string
}

type distCard struct {
	ID          string
	Ark         string
	DownloadURL string
}

// respondHTML renders the human-readable view of a graph: a dataset page
// for dcat:Dataset graphs, a namespace page otherwise.
func (s *Server) respondHTML(w http.ResponseWriter, r *http.Request, status int, g *rdf.Graph) {
	var (
		buf bytes.Buffer
		err error
	)
	if _, isDataset := g.SubjectWithType(rdf.DCATDataset); isDataset {
		err = s.renderDataset(&buf, g)
	} else {
		err = renderNamespace(&buf, g)
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// labelOf prefers skos:prefLabel over rdfs:label.
func labelOf(g *rdf.Graph, subject string) string {
	if label := g.ValueString(subject, rdf.SKOSPrefLabel); label != "" {
		return label
	}
	return g.ValueString(subject, rdf.RDFSLabel)
}

// definitionOf prefers skos:definition over rdfs:comment.
func definitionOf(g *rdf.Graph, subject string) string {
	if def := g.ValueString(subject, rdf.SKOSDefinition); def != "" {
		return def
	}
	return g.ValueString(subject, rdf.RDFSComment)
}

func renderNamespace(buf *bytes.Buffer, g *rdf.Graph) error {
	ns, ok := g.SubjectWithType(rdf.OWLOntology)
	if !ok {
		ns, _ = g.SubjectWithType(rdf.SKOSConceptScheme)
	}

	cards := make([]termCard, 0)
	for _, term := range g.Subjects(rdf.RDFSIsDefinedBy, ns) {
		cards = append(cards, termCard{
			URL:        term,
			Label:      labelOf(g, term),
			Definition: definitionOf(g, term),
		})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Label < cards[j].Label })

	return pageTemplates.ExecuteTemplate(buf, "namespace.html", map[string]any{
		"Title":     g.ValueString(ns, rdf.DCTTitle),
		"TermCards": cards,
	})
}

// renderDataset dereferences each dcat:distribution to pick up its
// download URL before rendering.
func (s *Server) renderDataset(buf *bytes.Buffer, g *rdf.Graph) error {
	ds, _ := g.SubjectWithType(rdf.DCATDataset)

	cards := make([]distCard, 0)
	for _, dist := range g.Objects(ds, rdf.DCATDistribution) {
		if dist.Kind != rdf.IRITerm {
			continue
		}
		if dg, err := s.fetcher.fetch(dist.Value); err == nil {
			g.Merge(dg)
		}
		ark := dist.Value
		if _, after, found := strings.Cut(dist.Value, "ark:"); found {
			ark = "ark:" + after
		}
		cards = append(cards, distCard{
			ID:          dist.Value,
			Ark:         ark,
			DownloadURL: g.ValueString(dist.Value, rdf.DCATDownloadURL),
		})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })

	return pageTemplates.ExecuteTemplate(buf, "dataset.html", map[string]any{
		"Title":       g.ValueString(ds, rdf.DCTTitle),
		"Description": g.ValueString(ds, rdf.DCTDescription),
		"Issued":      g.ValueString(ds, rdf.DCTIssued),
		"DistCards":   cards,
	})
}
