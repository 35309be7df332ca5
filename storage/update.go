package storage

import (
	"fmt"
	"reflect"
	"strings"
)

// Update is a Mongo-style update document: a map from $-prefixed operator
// to a map of field names and operand values, e.g.
//
//	{"$set": {"skos:prefLabel": "Example"}, "$unset": {"owl:sameAs": ""}}
//
// Only keys starting with "$" are recognized; an Update carrying none is
// rejected so a raw document can never silently replace an existing one.
type Update map[string]any

// Validate checks that the update contains at least one recognized
// $-operator and no unknown ones.
func (u Update) Validate() error {
	operators := 0
	for k := range u {
		if !strings.HasPrefix(k, "$") {
			return fmt.Errorf("%w: key %q", ErrNoOperator, k)
		}
		switch k {
		case "$set", "$unset", "$addToSet", "$push", "$pull", "$inc":
			operators++
		default:
			return fmt.Errorf("%w: unsupported operator %q", ErrBadUpdate, k)
		}
	}
	if operators == 0 {
		return ErrNoOperator
	}
	return nil
}

// Preview applies u to a copy of doc without touching any collection, so a
// caller can authorize the post-update state before committing it.
func (u Update) Preview(doc Doc) (Doc, error) {
	return applyUpdate(doc, u)
}

// applyUpdate applies the update operators to a copy of doc. The identity
// key is never touched.
func applyUpdate(doc Doc, u Update) (Doc, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	out := doc.Clone()
	for op, rawArgs := range u {
		args, ok := rawArgs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s operand must be an object", ErrBadUpdate, op)
		}
		for field, operand := range args {
			if field == IDKey {
				continue
			}
			if err := applyOperator(out, op, field, operand); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func applyOperator(doc Doc, op, field string, operand any) error {
	switch op {
	case "$set":
		doc[field] = operand
	case "$unset":
		delete(doc, field)
	case "$addToSet":
		return addToSet(doc, field, operand)
	case "$push":
		doc[field] = append(asList(doc[field]), operand)
	case "$pull":
		var kept []any
		for _, v := range asList(doc[field]) {
			if !reflect.DeepEqual(v, operand) {
				kept = append(kept, v)
			}
		}
		doc[field] = kept
	case "$inc":
		delta, ok := asNumber(operand)
		if !ok {
			return fmt.Errorf("%w: $inc %s operand not numeric", ErrBadUpdate, field)
		}
		cur, _ := asNumber(doc[field])
		doc[field] = cur + delta
	}
	return nil
}

// addToSet appends operand values absent from the list under field. An
// operand of the form {"$each": [...]} adds each element.
func addToSet(doc Doc, field string, operand any) error {
	values := []any{operand}
	if m, ok := operand.(map[string]any); ok {
		if each, present := m["$each"]; present {
			list, ok := each.([]any)
			if !ok {
				return fmt.Errorf("%w: $each operand for %s not a list", ErrBadUpdate, field)
			}
			values = list
		}
	}
	set := asList(doc[field])
	for _, v := range values {
		found := false
		for _, existing := range set {
			if reflect.DeepEqual(existing, v) {
				found = true
				break
			}
		}
		if !found {
			set = append(set, v)
		}
	}
	doc[field] = set
	return nil
}

func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	default:
		return 0, false
	}
}
