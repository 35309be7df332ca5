package rdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nsURI = "https://ns.example.org/ark:57802/2021/09/myorg/myrepo"

func namespaceDoc() map[string]any {
	return map[string]any{
		"_id":       nsURI,
		"@id":       nsURI,
		"@type":     "owl:Ontology",
		"dct:title": "myrepo",
	}
}

func TestFromDocument(t *testing.T) {
	g, err := FromDocument(namespaceDoc())
	require.NoError(t, err)

	subject, ok := g.SubjectWithType(OWLOntology)
	require.True(t, ok)
	assert.Equal(t, nsURI, subject)
	assert.Equal(t, "myrepo", g.ValueString(nsURI, DCTTitle))

	// The reserved storage key is not a statement.
	for _, tr := range g.Triples() {
		assert.NotContains(t, tr.Predicate, "_id")
	}
}

func TestFromDocumentRequiresID(t *testing.T) {
	_, err := FromDocument(map[string]any{"dct:title": "x"})
	assert.Error(t, err)
}

func TestFromDocumentObjectShapes(t *testing.T) {
	doc := map[string]any{
		"@id":             "https://example.org/thing",
		"dcat:downloadURL": map[string]any{"@id": "https://example.org/file.csv"},
		"dct:description": map[string]any{"@value": "desc", "@language": "en"},
		"dct:issued":      float64(2021),
		"skos:altLabel":   []any{"a", "b"},
		"unknownkey":      "dropped", // no colon, not a statement
	}
	g, err := FromDocument(doc)
	require.NoError(t, err)

	term, ok := g.Value("https://example.org/thing", DCATDownloadURL)
	require.True(t, ok)
	assert.Equal(t, IRITerm, term.Kind)
	assert.Equal(t, "https://example.org/file.csv", term.Value)

	term, _ = g.Value("https://example.org/thing", DCTDescription)
	assert.Equal(t, "en", term.Language)

	term, _ = g.Value("https://example.org/thing", DCTIssued)
	assert.Equal(t, NSXSD+"integer", term.Datatype)

	assert.Len(t, g.Objects("https://example.org/thing", NSSKOS+"altLabel"), 2)

	for _, tr := range g.Triples() {
		assert.NotEqual(t, "unknownkey", tr.Predicate)
	}
}

func TestEnsureContext(t *testing.T) {
	doc := map[string]any{"@context": map[string]any{"ex": "https://example.org/"}}
	EnsureContext(doc)
	ctx := doc["@context"].(map[string]any)
	assert.Equal(t, "https://example.org/", ctx["ex"], "document context wins")
	assert.Equal(t, NSSKOS, ctx["skos"], "default context filled in")
}

func TestTurtleRoundTrip(t *testing.T) {
	g, err := FromDocument(namespaceDoc())
	require.NoError(t, err)

	data, err := Serialize(g, FormatTurtle)
	require.NoError(t, err)
	assert.Contains(t, string(data), "@prefix dct:")
	assert.Contains(t, string(data), "owl:Ontology")

	parsed, err := Parse(strings.NewReader(string(data)), FormatTurtle)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), parsed.Len())
	assert.Equal(t, "myrepo", parsed.ValueString(nsURI, DCTTitle))
}

func TestJSONLDRoundTrip(t *testing.T) {
	g, err := FromDocument(namespaceDoc())
	require.NoError(t, err)

	data, err := Serialize(g, FormatJSONLD)
	require.NoError(t, err)

	parsed, err := ParseJSONLD(data)
	require.NoError(t, err)
	_, ok := parsed.SubjectWithType(OWLOntology)
	assert.True(t, ok)
	assert.Equal(t, "myrepo", parsed.ValueString(nsURI, DCTTitle))
}

func TestNTriplesOutput(t *testing.T) {
	g := NewGraph()
	g.AddIRI(nsURI, RDFType, OWLOntology)
	g.AddLiteral(nsURI, DCTTitle, `say "hi"`)

	data, err := Serialize(g, FormatNTriples)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "<"+nsURI+"> <"+RDFType+"> <"+OWLOntology+"> .", lines[0])
	assert.Contains(t, lines[1], `\"hi\"`)
}

func TestRDFXMLOutput(t *testing.T) {
	g, err := FromDocument(namespaceDoc())
	require.NoError(t, err)

	data, err := Serialize(g, FormatRDFXML)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `<rdf:RDF`)
	assert.Contains(t, s, `rdf:about="`+nsURI+`"`)
	assert.Contains(t, s, "<dct:title>myrepo</dct:title>")

	parsed, err := Parse(strings.NewReader(s), FormatRDFXML)
	require.NoError(t, err)
	assert.Equal(t, "myrepo", parsed.ValueString(nsURI, DCTTitle))
}

func TestHTMLAble(t *testing.T) {
	g := NewGraph()
	assert.False(t, g.HTMLAble())

	g.AddIRI(nsURI, RDFType, SKOSConceptScheme)
	assert.True(t, g.HTMLAble())
}

func TestFormatForMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      Format
		ok        bool
	}{
		{"text/turtle", FormatTurtle, true},
		{"application/ld+json", FormatJSONLD, true},
		{"application/rdf+xml", FormatRDFXML, true},
		{"application/n-triples", FormatNTriples, true},
		{"Text/Turtle", FormatTurtle, true},
		{"text/html", "", false},
		{"image/webp", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatForMediaType(tt.mediaType)
		assert.Equal(t, tt.ok, ok, tt.mediaType)
		if ok {
			assert.Equal(t, tt.want, got, tt.mediaType)
		}
	}
}

func TestSortedMediaTypes(t *testing.T) {
	got := SortedMediaTypes("text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	assert.Equal(t, []string{
		"text/html", "application/xhtml+xml", "image/webp", "application/xml", "*/*",
	}, got)

	assert.Nil(t, SortedMediaTypes(""))

	// Ties keep original order; missing q defaults to 1.0.
	got = SortedMediaTypes("a/b;q=0.5,c/d,e/f;q=0.5")
	assert.Equal(t, []string{"c/d", "a/b", "e/f"}, got)
}
