package server

import (
	"errors"
	"net/http"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/policy"
	"github.com/polyneme/termeric/rdf"
	"github.com/polyneme/termeric/storage"
)

// handleCreateSkolem mints a fresh identifier under the requested shoulder
// and stores the posted document at it.
func (s *Server) handleCreateSkolem(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	shoulder, err := ark.ParseShoulder(params["shoulder"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateShoulder(agent, shoulder); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	// An unregistered shoulder is a validation failure on the request, not
	// an authorization or lookup failure: that identifier space cannot be
	// minted into.
	if err := s.registry.CheckRegistered(r.Context(), naan, shoulder); err != nil {
		if errors.Is(err, ark.ErrUnregisteredShoulder) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.internalError(w, r, err)
		return
	}

	var body map[string]any
	if !decodeBody(w, r, &body) {
		return
	}

	arkNew, err := s.minter.Mint(r.Context(), naan, shoulder)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.metrics.minted.Inc()

	doc := storage.Doc(body)
	if doc == nil {
		doc = storage.Doc{}
	}
	doc["@id"] = s.uriFor(arkNew)
	doc[storage.IDKey] = arkNew
	rdf.EnsureContext(doc)

	// The mint already reserved the identity; fill in the document.
	if err := s.store.Arks.Replace(r.Context(), arkNew, doc); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.legacyMap.Invalidate()
	s.respondDoc(w, r, http.StatusCreated, doc)
}

// handleGetSkolem resolves a single-segment basename: legacy mappings win
// and redirect outward; otherwise the stored document is served.
func (s *Server) handleGetSkolem(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	basename := params["basename"]

	url, hit, err := s.legacyMap.Lookup(r.Context(), naan, basename)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if hit {
		s.metrics.legacyHits.Inc()
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}

	doc, err := s.store.Arks.FindID(r.Context(), naan.ARK(basename))
	if err != nil || doc["@id"] == nil {
		// Mint placeholders without a filled-in document stay unresolvable.
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.internalError(w, r, err)
			return
		}
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.respondDoc(w, r, http.StatusOK, doc)
}

func (s *Server) handleUpdateSkolem(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	basename := params["basename"]
	shoulder, _, err := ark.SplitBasename(basename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	agent, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}
	if err := policy.CheckMutateShoulder(agent, shoulder); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var envelope updateEnvelope
	if !decodeBody(w, r, &envelope) {
		return
	}

	id := naan.ARK(basename)
	if _, err := s.store.Arks.FindID(r.Context(), id); err != nil {
		s.writeStorageError(w, r, err, "Not found")
		return
	}
	if _, err := s.store.Arks.Apply(r.Context(), id, unsetEquivalences()); err != nil {
		s.writeStorageError(w, r, err, "Not found")
		return
	}
	doc, err := s.store.Arks.Apply(r.Context(), id, envelope.Update)
	if err != nil {
		s.writeStorageError(w, r, err, "Not found")
		return
	}
	s.respondDoc(w, r, http.StatusOK, doc)
}
