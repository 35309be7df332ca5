package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/polyneme/termeric/rdf"
	"github.com/polyneme/termeric/storage"
)

// maxRequestBodySize limits request body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// errorBody is the JSON error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing left to do.
		_ = err
	}
}

// writeStorageError maps storage-layer failures onto the error taxonomy:
// absent documents are 404, duplicate identities 409, malformed update
// envelopes 422.
func (s *Server) writeStorageError(w http.ResponseWriter, r *http.Request, err error, notFoundDetail string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundDetail)
	case errors.Is(err, storage.ErrExists):
		writeError(w, http.StatusConflict, "Already exists!")
	case errors.Is(err, storage.ErrNoOperator), errors.Is(err, storage.ErrBadUpdate):
		writeError(w, http.StatusUnprocessableEntity, "update api: "+err.Error())
	default:
		s.internalError(w, r, err)
	}
}

// respondGraph writes g in the best representation the client accepts.
// Accept alternatives are tried in descending quality-factor order;
// text/html is honored only for graphs with an HTML view; an unsupported
// media type means "try the next one". When nothing matches, the graph is
// served as Turtle with a plain-text content type, so resolution always
// returns something useful.
func (s *Server) respondGraph(w http.ResponseWriter, r *http.Request, status int, g *rdf.Graph) {
	accept := r.URL.Query().Get("_mediatype")
	if accept == "" {
		accept = r.Header.Get("Accept")
	}

	for _, mediaType := range rdf.SortedMediaTypes(accept) {
		if mediaType == "text/html" && g.HTMLAble() {
			s.respondHTML(w, r, status, g)
			return
		}
		format, ok := rdf.FormatForMediaType(mediaType)
		if !ok {
			continue
		}
		body, err := rdf.Serialize(g, format)
		if err != nil {
			continue
		}
		w.Header().Set("Content-Type", mediaType)
		w.WriteHeader(status)
		w.Write(body)
		return
	}

	body, err := rdf.Serialize(g, rdf.FormatTurtle)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// respondDoc converts a stored document to a graph and negotiates the
// representation. The internal identity key never leaves the store.
func (s *Server) respondDoc(w http.ResponseWriter, r *http.Request, status int, doc storage.Doc) {
	g, err := rdf.FromDocument(doc.Without(storage.IDKey))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.respondGraph(w, r, status, g)
}

// decodeBody decodes the JSON request body into v, bounding its size.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
