package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyneme/termeric/storage"
)

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		name     string
		template string
		path     string
		want     map[string]string
		wantOK   bool
	}{
		{
			name:     "literal",
			template: "/2021/04/marda-dd/test",
			path:     "/2021/04/marda-dd/test",
			want:     map[string]string{},
			wantOK:   true,
		},
		{
			name:     "literal mismatch",
			template: "/2021/04/marda-dd/test",
			path:     "/2021/04/marda-dd/other",
			wantOK:   false,
		},
		{
			name:     "prefixed placeholder",
			template: "/ark:{naan}/{basename}",
			path:     "/ark:57802/fk4abcd",
			want:     map[string]string{"naan": "57802", "basename": "fk4abcd"},
			wantOK:   true,
		},
		{
			name:     "placeholder never binds empty",
			template: "/ark:{naan}/{basename}",
			path:     "/ark:57802/",
			wantOK:   false,
		},
		{
			name:     "segment shorter than literal prefix",
			template: "/ark:{naan}/{basename}",
			path:     "/ar/x",
			wantOK:   false,
		},
		{
			name:     "suffix placeholder",
			template: "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/{term}:import",
			path:     "/ark:57802/2021/09/orgA/repo1/t1:import",
			want: map[string]string{
				"naan": "57802", "year": "2021", "month": "09",
				"org": "orgA", "repo": "repo1", "term": "t1",
			},
			wantOK: true,
		},
		{
			name:     "suffix required",
			template: "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/{term}:import",
			path:     "/ark:57802/2021/09/orgA/repo1/t1",
			wantOK:   false,
		},
		{
			name:     "int placeholder accepts digits",
			template: "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}",
			path:     "/ark:57802/2021/9/orgA/repo1",
			want: map[string]string{
				"naan": "57802", "year": "2021", "month": "9",
				"org": "orgA", "repo": "repo1",
			},
			wantOK: true,
		},
		{
			name:     "int placeholder rejects non-digits",
			template: "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}",
			path:     "/ark:57802/fk1-234/sub1/sub2/leaf.v1",
			wantOK:   false,
		},
		{
			name:     "trailing slash is a distinct path",
			template: "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}",
			path:     "/ark:57802/2021/09/orgA/repo1/",
			wantOK:   false,
		},
		{
			name:     "trailing slash template",
			template: "/ark:{naan}/{year:int}/{month:int}/{org}/{repo}/",
			path:     "/ark:57802/2021/09/orgA/repo1/",
			want: map[string]string{
				"naan": "57802", "year": "2021", "month": "09",
				"org": "orgA", "repo": "repo1",
			},
			wantOK: true,
		},
		{
			name:     "rest captures remainder with slashes",
			template: "/ark:{naan}/{rest...}",
			path:     "/ark:57802/a/b/c.v1",
			want:     map[string]string{"naan": "57802", "rest": "a/b/c.v1"},
			wantOK:   true,
		},
		{
			name:     "rest may be empty",
			template: "/ark:{naan}/{rest...}",
			path:     "/ark:57802",
			want:     map[string]string{"naan": "57802", "rest": ""},
			wantOK:   true,
		},
		{
			name:     "prefixed rest",
			template: "/ark:57802/p0{rest...}",
			path:     "/ark:57802/p0abc/x",
			want:     map[string]string{"rest": "abc/x"},
			wantOK:   true,
		},
		{
			name:     "prefixed rest requires the literal",
			template: "/ark:57802/p0{rest...}",
			path:     "/ark:57802/q0abc",
			wantOK:   false,
		},
		{
			name:     "slash naan form",
			template: "/ark:/{naan}/{rest...}",
			path:     "/ark:/57802/fk4abcd",
			want:     map[string]string{"naan": "57802", "rest": "fk4abcd"},
			wantOK:   true,
		},
		{
			name:     "canonical form does not match slash naan template",
			template: "/ark:/{naan}/{rest...}",
			path:     "/ark:57802/fk4abcd",
			wantOK:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, ok := parsePattern(tt.template).match(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK && tt.want != nil {
				assert.Equal(t, tt.want, params)
			}
		})
	}
}

// The route table is position-sensitive: the catch-all must stay last and
// the hard-coded endpoints must precede the structured routes that would
// otherwise absorb them.
func TestRouteTableOrdering(t *testing.T) {
	s := New(storage.NewMemoryStore(), "http://localhost:8000", nil)

	position := make(map[string]int, len(s.routes))
	for i, rt := range s.routes {
		position[rt.name] = i
	}

	assert.Equal(t, len(s.routes)-1, position["fallthrough"], "catch-all must be last")
	assert.Less(t, position["slash_naan"], position["marda_dd_test"])
	assert.Less(t, position["marda_phonons"], position["get_namespace"])
	assert.Less(t, position["query_eval"], position["query_eval_term"])
	assert.Less(t, position["fwd_fk0"], position["get_skolem"])
	assert.Less(t, position["create_agent"], position["create_namespace"])
	assert.Less(t, position["import_term"], position["get_term"])
	assert.Less(t, position["explain"], position["fallthrough"])
	assert.Less(t, position["get_skolem"], position["fallthrough"])
}
