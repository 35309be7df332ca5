package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/polyneme/termeric/rdf"
)

// Historical endpoints whose URLs predate the structured routes and must
// keep resolving. Variables so tests can point them at local servers.
var (
	mardaDDTestURL       = "https://raw.githubusercontent.com/polyneme/ns/main/hello_world.ttl"
	mardaPhononsURL      = "https://raw.githubusercontent.com/marda-dd/phonons/main/concept_scheme.ttl"
	queryEvalOntologyURL = "https://w3id.org/lode/owlapi/https://raw.githubusercontent.com/polyneme/ads-query-eval/main/query-eval.ttl"
	aguIndexTermsPath    = "agu_index_terms.ttl"
)

// graphFetcher loads and caches remote Turtle graphs for the hard-coded
// legacy endpoints. Entries live until the process restarts; the sources
// are effectively static.
type graphFetcher struct {
	client *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*rdf.Graph
}

func newGraphFetcher(logger *slog.Logger) *graphFetcher {
	return &graphFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		cache:  make(map[string]*rdf.Graph),
	}
}

func (f *graphFetcher) fetch(url string) (*rdf.Graph, error) {
	f.mu.RLock()
	g, ok := f.cache[url]
	f.mu.RUnlock()
	if ok {
		return g, nil
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/turtle")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	g, err = rdf.Parse(strings.NewReader(string(body)), rdf.FormatTurtle)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	f.mu.Lock()
	f.cache[url] = g
	f.mu.Unlock()
	f.logger.Debug("fetched legacy graph", slog.String("url", url), slog.Int("triples", g.Len()))
	return g, nil
}

func (s *Server) serveFetchedGraph(w http.ResponseWriter, r *http.Request, url string) {
	g, err := s.fetcher.fetch(url)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.respondGraph(w, r, http.StatusOK, g)
}

func (s *Server) handleMardaDDTest(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serveFetchedGraph(w, r, mardaDDTestURL)
}

func (s *Server) handleMardaPhonons(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s.serveFetchedGraph(w, r, mardaPhononsURL)
}

func (s *Server) handleQueryEval(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	http.Redirect(w, r, queryEvalOntologyURL, http.StatusSeeOther)
}

// forwardTo redirects a shoulder's whole subtree to a peer name mapping
// authority, preserving the request path.
func (s *Server) forwardTo(peerHost string) func(http.ResponseWriter, *http.Request, map[string]string) {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		target := peerHost + r.URL.Path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func (s *Server) aguGraph() (*rdf.Graph, error) {
	data, err := os.ReadFile(aguIndexTermsPath)
	if err != nil {
		return nil, err
	}
	return rdf.Parse(strings.NewReader(string(data)), rdf.FormatTurtle)
}

func (s *Server) handleAGUIndex(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	g, err := s.aguGraph()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.respondGraph(w, r, http.StatusOK, g)
}

// handleAGUTerm serves the triples of the index term annotated with the
// requested code.
func (s *Server) handleAGUTerm(w http.ResponseWriter, r *http.Request, params map[string]string) {
	code := params["code"]
	g, err := s.aguGraph()
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	marker := "CODE: " + code
	subjects := make(map[string]bool)
	for _, t := range g.Triples() {
		if t.Predicate == rdf.RDFSComment && t.Object.Kind == rdf.LiteralTerm && t.Object.Value == marker {
			subjects[t.Subject] = true
		}
	}
	if len(subjects) == 0 {
		writeError(w, http.StatusNotFound, "No AGU index term with code "+code)
		return
	}

	out := rdf.NewGraph()
	for _, t := range g.Triples() {
		if subjects[t.Subject] {
			out.Add(t.Subject, t.Predicate, t.Object)
		}
	}
	s.respondGraph(w, r, http.StatusOK, out)
}
