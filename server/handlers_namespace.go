package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/policy"
	"github.com/polyneme/termeric/rdf"
	"github.com/polyneme/termeric/storage"
)

// updateEnvelope is the PATCH request body: a Mongo-style update document
// under the "update" key.
type updateEnvelope struct {
	Update storage.Update `json:"update"`
}

// unsetEquivalences drops the owl equivalence assertions before a PATCH is
// applied, so stale sameAs/equivalentClass links never survive an edit
// unless the update restates them.
func unsetEquivalences() storage.Update {
	return storage.Update{
		"$unset": map[string]any{
			"owl:equivalentProperty": "",
			"owl:equivalentClass":    "",
			"owl:sameAs":             "",
		},
	}
}

// namespaceID is the storage identity for a dated namespace; months are
// zero-padded so every route variant addresses the same document.
func namespaceID(naan ark.Naan, year, month int, org, repo string) string {
	return fmt.Sprintf("ark:%s/%d/%02d/%s/%s", naan, year, month, org, repo)
}

// uriFor renders the public URI a stored identifier resolves at.
func (s *Server) uriFor(arkID string) string {
	return s.host + "/" + arkID
}

func (s *Server) handleCreateNamespace(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	repo := r.URL.Query().Get("repo")
	if repo == "" {
		writeError(w, http.StatusBadRequest, "repo query parameter is required")
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], repo); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}

	id := namespaceID(naan, year, month, params["org"], repo)
	doc := storage.Doc{"dct:title": repo}
	for k, v := range body {
		doc[k] = v
	}
	doc["@id"] = s.uriFor(id)
	doc["@type"] = "owl:Ontology"
	doc[storage.IDKey] = id
	rdf.EnsureContext(doc)

	if err := s.store.Namespaces.Insert(r.Context(), doc); err != nil {
		if errors.Is(err, storage.ErrExists) {
			writeError(w, http.StatusConflict, "Namespace already exists!")
			return
		}
		s.internalError(w, r, err)
		return
	}
	s.respondDoc(w, r, http.StatusCreated, doc)
}

func (s *Server) handleGetNamespace(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"])
	nsDoc, err := s.store.Namespaces.FindID(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, r, err, "Namespace not found")
		return
	}
	termDocs, err := s.store.Terms.FindPrefix(r.Context(), storage.IDKey, id+"/")
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	// One graph: the namespace document plus every contained term.
	g, err := rdf.FromDocument(nsDoc.Without(storage.IDKey))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	for _, doc := range termDocs {
		tg, err := rdf.FromDocument(doc.Without(storage.IDKey))
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		g.Merge(tg)
	}
	s.respondGraph(w, r, http.StatusOK, g)
}

func (s *Server) handleUpdateNamespace(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], params["repo"]); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var envelope updateEnvelope
	if !decodeBody(w, r, &envelope) {
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"])
	if _, err := s.store.Namespaces.FindID(r.Context(), id); err != nil {
		s.writeStorageError(w, r, err, "Namespace not found")
		return
	}
	doc, err := s.store.Namespaces.Apply(r.Context(), id, envelope.Update)
	if err != nil {
		s.writeStorageError(w, r, err, "Namespace not found")
		return
	}
	s.respondDoc(w, r, http.StatusOK, doc)
}

func (s *Server) handleDeleteNamespace(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], params["repo"]); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"])
	if _, err := s.store.Namespaces.FindID(r.Context(), id); err != nil {
		s.writeStorageError(w, r, err, "Namespace not found")
		return
	}
	n, err := s.store.Namespaces.Delete(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"n_deleted": n})
}

// handleNamespaceSlash strips the trailing slash from a namespace URL.
func (s *Server) handleNamespaceSlash(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	target := strings.TrimSuffix(r.URL.Path, "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

func (s *Server) handleCreateTerm(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	term := r.URL.Query().Get("term")
	if term == "" {
		writeError(w, http.StatusBadRequest, "term query parameter is required")
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], params["repo"]); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"]) + "/" + term
	doc := storage.Doc(body)
	if doc == nil {
		doc = storage.Doc{}
	}
	doc["@id"] = s.uriFor(id)
	doc[storage.IDKey] = id
	rdf.EnsureContext(doc)

	if err := s.store.Terms.Insert(r.Context(), doc); err != nil {
		if errors.Is(err, storage.ErrExists) {
			writeError(w, http.StatusConflict, "Term already exists!")
			return
		}
		s.internalError(w, r, err)
		return
	}
	s.respondDoc(w, r, http.StatusCreated, doc)
}

func (s *Server) handleGetTerm(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"]) + "/" + params["term"]
	doc, err := s.store.Terms.FindID(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, r, err, "Term not found")
		return
	}
	s.respondDoc(w, r, http.StatusOK, doc)
}

func (s *Server) handleUpdateTerm(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], params["repo"]); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var envelope updateEnvelope
	if !decodeBody(w, r, &envelope) {
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"]) + "/" + params["term"]
	if _, err := s.store.Terms.FindID(r.Context(), id); err != nil {
		s.writeStorageError(w, r, err, "Term not found")
		return
	}
	if _, err := s.store.Terms.Apply(r.Context(), id, unsetEquivalences()); err != nil {
		s.writeStorageError(w, r, err, "Term not found")
		return
	}
	doc, err := s.store.Terms.Apply(r.Context(), id, envelope.Update)
	if err != nil {
		s.writeStorageError(w, r, err, "Term not found")
		return
	}
	s.respondDoc(w, r, http.StatusOK, doc)
}

func (s *Server) handleDeleteTerm(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], params["repo"]); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	id := namespaceID(naan, year, month, params["org"], params["repo"]) + "/" + params["term"]
	if _, err := s.store.Terms.FindID(r.Context(), id); err != nil {
		s.writeStorageError(w, r, err, "Term not found")
		return
	}
	n, err := s.store.Terms.Delete(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"n_deleted": n})
}

// termImportRequest names the source term to copy into the target
// namespace.
type termImportRequest struct {
	TermURI string `json:"term_uri"`
}

var termNamespacePattern = regexp.MustCompile(
	`^ark:(\d{5})/(\d{4})/(\d{2})/([\w\-]+)/([\w\-]+)$`)

// handleImportTerm copies a term from a sealed namespace into the target
// namespace under a new URI. Only namespaces dated strictly before the
// current month can be imported from; the copy then evolves independently.
func (s *Server) handleImportTerm(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	year, month, ok := parseDateParams(w, params)
	if !ok {
		return
	}
	if !checkDateGate(w, year, month) {
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateRepo(agent, params["org"], params["repo"]); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var req termImportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	srcID := strings.TrimPrefix(req.TermURI, s.host+"/")
	cut := strings.LastIndex(srcID, "/")
	if cut < 0 {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid term source %q.", req.TermURI))
		return
	}
	srcNamespace := srcID[:cut]
	m := termNamespacePattern.FindStringSubmatch(srcNamespace)
	if m == nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid term source namespace %q.", srcNamespace))
		return
	}
	srcYear, _ := strconv.Atoi(m[2])
	srcMonth, _ := strconv.Atoi(m[3])
	if !importableDate(srcYear, srcMonth) {
		writeError(w, http.StatusForbidden,
			"Cannot import from future or current-month namespaces")
		return
	}

	srcDoc, err := s.store.Terms.FindID(r.Context(), srcID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// A missing source is a bad request body, not a missing target
			// resource.
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("No entry for %s found.", req.TermURI))
			return
		}
		s.internalError(w, r, err)
		return
	}

	tgtID := namespaceID(naan, year, month, params["org"], params["repo"]) + "/" + params["term"]
	doc := srcDoc.Without(storage.IDKey, "@id")
	doc["@id"] = s.uriFor(tgtID)
	doc[storage.IDKey] = tgtID
	rdf.EnsureContext(doc)

	if err := s.store.Terms.Insert(r.Context(), doc); err != nil {
		s.writeStorageError(w, r, err, "")
		return
	}
	s.respondDoc(w, r, http.StatusCreated, doc)
}
