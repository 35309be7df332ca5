package server

import (
	"net/http"
	"strings"
)

// handleSlashNaan normalizes the slash-before-naan form to the canonical
// one.
func (s *Server) handleSlashNaan(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	target := strings.Replace(r.URL.Path, "ark:/", "ark:", 1)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

// explainDoc describes how the resolver decomposed an identifier it does
// not hold: metadata instead of a hard failure.
type explainDoc struct {
	Resolver string   `json:"resolver"`
	NMA      string   `json:"nma"`
	Naan     string   `json:"naan"`
	Basename string   `json:"basename"`
	Subparts []string `json:"subparts"`
	Variants []string `json:"variants"`
}

// decomposePath splits an arbitrary ARK remainder into basename (first
// segment, hyphens stripped), subparts (middle segments plus the leaf of
// the last segment) and variants (dot-separated suffixes of the last
// segment).
func decomposePath(rest string) (basename string, subparts, variants []string) {
	segs := strings.Split(rest, "/")
	basename = strings.ReplaceAll(segs[0], "-", "")
	subparts = []string{}
	variants = []string{}
	tail := segs[1:]
	if len(tail) == 0 {
		return basename, subparts, variants
	}
	leafAndVariants := strings.Split(tail[len(tail)-1], ".")
	subparts = append(subparts, tail[:len(tail)-1]...)
	subparts = append(subparts, leafAndVariants[0])
	variants = append(variants, leafAndVariants[1:]...)
	return basename, subparts, variants
}

func (s *Server) explainFor(naanStr, rest string) explainDoc {
	basename, subparts, variants := decomposePath(rest)
	nma := s.host
	if _, after, found := strings.Cut(nma, "://"); found {
		nma = after
	}
	return explainDoc{
		Resolver: s.host + "/",
		NMA:      nma,
		Naan:     naanStr,
		Basename: basename,
		Subparts: subparts,
		Variants: variants,
	}
}

// handleExplain returns the decomposition directly, for introspection.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.explainFor(naan.String(), params["rest"]))
}

// handleFallthrough is the terminal catch-all: a legacy mapping for the
// decomposed basename redirects outward, anything else resolves to an
// explain document rather than an error.
func (s *Server) handleFallthrough(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	rest := params["rest"]
	basename, _, _ := decomposePath(rest)

	if basename != "" {
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
	}
	writeJSON(w, http.StatusOK, s.explainFor(naan.String(), rest))
}
