package rdf

import (
	"sort"
	"strconv"
	"strings"
)

// SortedMediaTypes parses an HTTP Accept header into media types ordered
// by relative quality factor, RFC 2616 style: a missing q defaults to 1.0,
// accept-params other than q are ignored, and ties keep the header's
// original order.
//
// Example: "text/html,application/xml;q=0.9,*/*;q=0.8" yields
// ["text/html", "application/xml", "*/*"].
func SortedMediaTypes(accept string) []string {
	if strings.TrimSpace(accept) == "" {
		return nil
	}
	type alt struct {
		mediaType string
		q         float64
	}
	var alts []alt
	for _, part := range strings.Split(accept, ",") {
		elements := strings.Split(part, ";")
		mediaType := strings.TrimSpace(elements[0])
		if mediaType == "" {
			continue
		}
		q := 1.0
		for _, el := range elements[1:] {
			el = strings.TrimSpace(el)
			if v, ok := strings.CutPrefix(el, "q="); ok {
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					q = parsed
				}
			}
		}
		alts = append(alts, alt{mediaType, q})
	}
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].q > alts[j].q })
	out := make([]string, len(alts))
	for i, a := range alts {
		out[i] = a.mediaType
	}
	return out
}
