// Package server implements the HTTP resolver: an ordered route table
// classifying every inbound ARK path as a normalization redirect, a
// hard-coded legacy endpoint, a structured namespace/term/skolem/agent
// operation, or the arbitrary fall-through, in that priority order.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/legacy"
	"github.com/polyneme/termeric/storage"
)

// Server resolves ARK paths against the store and serves content-negotiated
// RDF representations. The route table is evaluated top to bottom with
// first match wins; its ordering is load-bearing because later patterns
// are structurally more general than earlier ones.
type Server struct {
	store     *storage.Store
	registry  *ark.Registry
	minter    *ark.Minter
	legacyMap *legacy.Map
	fetcher   *graphFetcher
	logger    *slog.Logger
	metrics   *metrics

	// host is the public base URL minted identifiers resolve under.
	host   string
	routes []route
}

type route struct {
	name    string
	method  string
	pattern pattern
	handler func(w http.ResponseWriter, r *http.Request, params map[string]string)
}

// New constructs a Server over the given store. host is the public base
// URL (no trailing slash).
func New(store *storage.Store, host string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		registry:  ark.NewRegistry(store.Naans),
		logger:    logger,
		metrics:   newMetrics(),
		host:      host,
		legacyMap: legacy.NewMap(store.Arks, logger),
	}
	s.minter = ark.NewMinter(store.Arks, logger)
	s.fetcher = newGraphFetcher(logger)
	s.routes = s.buildRoutes()
	return s
}

// Registry exposes the shoulder registry for boot reconciliation.
func (s *Server) Registry() *ark.Registry { return s.registry }

// LegacyMap exposes the legacy mapping cache for boot reconciliation.
func (s *Server) LegacyMap() *legacy.Map { return s.legacyMap }

// buildRoutes assembles the route table in precedence order. Stated once,
// here: normalization redirects, then hard-coded legacy endpoints, then
// structured resource routes, then explain, then the catch-all. Moving the
// catch-all earlier would shadow every structured route.
func (s *Server) buildRoutes() []route {
	r := func(name, method, template string, h func(http.ResponseWriter, *http.Request, map[string]string)) route {
		return route{name: name, method: method, pattern: parsePattern(template), handler: h}
	}
	return []route{
		// 1. Normalization redirects.
		r("slash_naan", http.MethodGet, "/ark:/{naan}/{rest...}", s.handleSlashNaan),

		// 2. Hard-coded legacy endpoints, registered before the structured
		// routes they would otherwise be shadowed by.
		r("marda_dd_test", http.MethodGet, "/2021/04/marda-dd/test", s.handleMardaDDTest),
		r("marda_phonons", http.MethodGet, "/ark:57802/2021/08/mardaphonons", s.handleMardaPhonons),
		r("query_eval", http.MethodGet, "/ark:57802/dw0/queryeval", s.handleQueryEval),
		r("query_eval_term", http.MethodGet, "/ark:57802/dw0/queryeval/{term}", s.handleQueryEval),
		r("agu_index", http.MethodGet, "/ark:57802/dw0/agu", s.handleAGUIndex),
		r("agu_term", http.MethodGet, "/ark:57802/dw0/agu/{code}", s.handleAGUTerm),
		r("fwd_p0", http.MethodGet, "/ark:57802/p0{rest...}", s.forwardTo("https://svc.polyneme.xyz/pids")),
		r("fwd_mkg0", http.MethodGet, "/ark:57802/mkg0{rest...}", s.forwardTo("https://svc.polyneme.xyz/pids")),
		r("fwd_fk0", http.MethodGet, "/ark:57802/fk0{rest...}", s.forwardTo("https://arklet.polyneme.xyz")),

		// 3a. Agent routes: the sentinel date 9999/12 makes these more
		// specific than the namespace patterns below.
		r("create_agent", http.MethodPost, "/ark:{naan}/9999/12/system/agents", s.handleCreateAgent),
		r("get_agent", http.MethodGet, "/ark:{naan}/9999/12/system/agents/{username}", s.handleGetAgent),
		r("update_agent", http.MethodPatch, "/ark:{naan}/9999/12/system/agents/{username}", s.handleUpdateAgent),
		r("delete_agent", http.MethodDelete, "/ark:{naan}/9999/12/system/agents/{username}", s.handleDeleteAgent),

		// 3b. Namespace and term routes.
		r("create_namespace", http.MethodPost, "/ark:{naan}/{year:int}/{month:int}/{org}", s.handleCreateNamespace),
		r("namespace_slash", http.MethodGet, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/", s.handleNamespaceSlash),
		r("get_namespace", http.MethodGet, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}", s.handleGetNamespace),
		r("update_namespace", http.MethodPatch, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}", s.handleUpdateNamespace),
		r("delete_namespace", http.MethodDelete, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}", s.handleDeleteNamespace),
		r("create_term", http.MethodPost, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}", s.handleCreateTerm),
		r("import_term", http.MethodPost, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/{term}:import", s.handleImportTerm),
		r("get_term", http.MethodGet, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/{term}", s.handleGetTerm),
		r("update_term", http.MethodPatch, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/{term}", s.handleUpdateTerm),
		r("delete_term", http.MethodDelete, "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/{term}", s.handleDeleteTerm),

		// 3c. Skolem routes.
		r("create_skolem", http.MethodPost, "/ark:{naan}/{shoulder}", s.handleCreateSkolem),
		r("get_skolem", http.MethodGet, "/ark:{naan}/{basename}", s.handleGetSkolem),
		r("update_skolem", http.MethodPatch, "/ark:{naan}/{basename}", s.handleUpdateSkolem),

		// 4. Explain (debug/introspection variant of the fall-through).
		r("explain", http.MethodGet, "/explain/ark:{naan}/{rest...}", s.handleExplain),

		// 5. Catch-all. Must stay last.
		r("fallthrough", http.MethodGet, "/ark:{naan}/{rest...}", s.handleFallthrough),
	}
}

// Handler wraps the route table in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.Handle("/", http.HandlerFunc(s.dispatch))
	return s.withRequestID(s.withLogging(mux))
}

// dispatch finds the first matching route. An unmatched path is a 404; a
// path whose pattern matched under a different method is a 405.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	methodMismatch := false
	for _, rt := range s.routes {
		params, ok := rt.pattern.match(r.URL.Path)
		if !ok {
			continue
		}
		if rt.method != r.Method {
			methodMismatch = true
			continue
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		rt.handler(sw, r, params)
		s.metrics.observe(rt.name, r.Method, sw.status, time.Since(start))
		return
	}
	if methodMismatch {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeError(w, http.StatusNotFound, "Not found")
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, listen string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", listen))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	err := <-errc
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// withRequestID attaches a request ID to the response and the request
// context logger.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.String("duration", time.Since(start).String()),
			slog.String("request_id", w.Header().Get("X-Request-ID")))
	})
}

// statusWriter records the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sw *statusWriter) WriteHeader(status int) {
	if !sw.written {
		sw.status = status
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(status)
}

// parseNaanParam parses and authority-checks the naan path parameter.
func (s *Server) parseNaanParam(w http.ResponseWriter, r *http.Request, params map[string]string) (ark.Naan, bool) {
	naan, err := ark.ParseNaan(params["naan"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	served, err := s.registry.Serves(r.Context(), naan)
	if err != nil {
		s.internalError(w, r, err)
		return 0, false
	}
	if !served {
		writeError(w, http.StatusForbidden,
			"This server is not a name mapping authority for ark naan "+naan.String())
		return 0, false
	}
	return naan, true
}

// parseDateParams parses the year/month path parameters. Months are
// normalized to two digits so /2021/9/... and /2021/09/... address the
// same namespace.
func parseDateParams(w http.ResponseWriter, params map[string]string) (year, month int, ok bool) {
	year, err := strconv.Atoi(params["year"])
	if err != nil || year < 1000 || year > 9999 {
		writeError(w, http.StatusBadRequest, "year must be a four-digit number")
		return 0, 0, false
	}
	month, err = strconv.Atoi(params["month"])
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be in 1..12")
		return 0, 0, false
	}
	return year, month, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal error",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
