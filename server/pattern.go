package server

import "strings"

// pattern is a compiled path template. Templates are segment-wise: each
// segment is literal text with at most one {name} placeholder, optionally
// surrounded by literal prefix/suffix text (e.g. "ark:{naan}" or
// "{term}:import"). A "{name:int}" placeholder matches digits only, so a
// structurally similar route with non-numeric segments falls through to a
// later pattern instead of failing validation. A trailing "{name...}"
// segment captures the remainder of the path, slashes included, and may
// match empty; a prefixed trailing capture ("p0{rest...}") requires the
// remainder to start with the literal.
type pattern struct {
	segments []segment
	rest     *segment // trailing capture, nil if none
}

type segment struct {
	prefix string
	name   string // "" for a fully literal segment
	suffix string
	digits bool   // placeholder matches [0-9]+ only
}

func parsePattern(template string) pattern {
	parts := strings.Split(strings.TrimPrefix(template, "/"), "/")
	p := pattern{}
	for i, part := range parts {
		open := strings.Index(part, "{")
		if open < 0 {
			p.segments = append(p.segments, segment{prefix: part})
			continue
		}
		closing := strings.Index(part, "}")
		name := part[open+1 : closing]
		if strings.HasSuffix(name, "...") && i == len(parts)-1 {
			p.rest = &segment{prefix: part[:open], name: strings.TrimSuffix(name, "...")}
			continue
		}
		name, typed := strings.CutSuffix(name, ":int")
		p.segments = append(p.segments, segment{
			prefix: part[:open],
			name:   name,
			suffix: part[closing+1:],
			digits: typed,
		})
	}
	return p
}

// match reports whether path matches, binding placeholder values. The
// path must carry its leading slash.
func (p pattern) match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")

	if p.rest == nil {
		if len(parts) != len(p.segments) {
			return nil, false
		}
	} else if len(parts) < len(p.segments) {
		return nil, false
	}

	params := make(map[string]string, len(p.segments)+1)
	for i, seg := range p.segments {
		if !seg.bind(parts[i], params) {
			return nil, false
		}
	}

	if p.rest != nil {
		remainder := strings.Join(parts[len(p.segments):], "/")
		if !strings.HasPrefix(remainder, p.rest.prefix) {
			return nil, false
		}
		params[p.rest.name] = remainder[len(p.rest.prefix):]
	}
	return params, true
}

// bind matches one path segment against the template segment, recording
// the placeholder value. Placeholders never bind empty strings.
func (seg segment) bind(part string, params map[string]string) bool {
	if seg.name == "" {
		return part == seg.prefix
	}
	if len(part) < len(seg.prefix)+len(seg.suffix) ||
		!strings.HasPrefix(part, seg.prefix) || !strings.HasSuffix(part, seg.suffix) {
		return false
	}
	value := part[len(seg.prefix) : len(part)-len(seg.suffix)]
	if value == "" {
		return false
	}
	if seg.digits && !allDigits(value) {
		return false
	}
	params[seg.name] = value
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
