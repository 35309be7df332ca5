package rdf

// Namespace IRIs of the default JSON-LD context every stored document is
// interpreted against.
const (
	NSRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NSOWL  = "http://www.w3.org/2002/07/owl#"
	NSSKOS = "http://www.w3.org/2004/02/skos/core#"
	NSDCT  = "http://purl.org/dc/terms/"
	NSDCAT = "http://www.w3.org/ns/dcat#"
	NSPROV = "http://www.w3.org/ns/prov#"
	NSQUDT = "http://qudt.org/schema/qudt/"
	NSXSD  = "http://www.w3.org/2001/XMLSchema#"
)

// Well-known terms the resolver inspects.
const (
	RDFType           = NSRDF + "type"
	RDFSLabel         = NSRDFS + "label"
	RDFSComment       = NSRDFS + "comment"
	RDFSIsDefinedBy   = NSRDFS + "isDefinedBy"
	OWLOntology       = NSOWL + "Ontology"
	SKOSConceptScheme = NSSKOS + "ConceptScheme"
	SKOSPrefLabel     = NSSKOS + "prefLabel"
	SKOSDefinition    = NSSKOS + "definition"
	DCTTitle          = NSDCT + "title"
	DCTDescription    = NSDCT + "description"
	DCTIssued         = NSDCT + "issued"
	DCATDataset       = NSDCAT + "Dataset"
	DCATDistribution  = NSDCAT + "distribution"
	DCATDownloadURL   = NSDCAT + "downloadURL"
)

// DefaultContext is the prefix table merged into every stored document's
// @context.
var DefaultContext = map[string]string{
	"rdf":  NSRDF,
	"rdfs": NSRDFS,
	"owl":  NSOWL,
	"skos": NSSKOS,
	"dct":  NSDCT,
	"dcat": NSDCAT,
	"prov": NSPROV,
	"qudt": NSQUDT,
	"xsd":  NSXSD,
}
