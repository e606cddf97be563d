package apispec

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// Nested allOf chains deeper than this are left unmerged.
const maxMergeDepth = 8

// shape is the flattened property view of an object schema.
type shape struct {
	props    map[string]*openapi3.SchemaRef
	required map[string]bool
}

func (s shape) names() []string {
	out := make([]string, 0, len(s.props))
	for n := range s.props {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// flatten collects the properties of ref. With mergeAllOf, members of an
// allOf composition contribute their properties and required lists as if
// they were declared on ref itself; the first declaration of a property wins.
func flatten(ref *openapi3.SchemaRef, mergeAllOf bool, depth int) shape {
	out := shape{
		props:    make(map[string]*openapi3.SchemaRef),
		required: make(map[string]bool),
	}
	if ref == nil || ref.Value == nil {
		return out
	}
	s := ref.Value
	for name, p := range s.Properties {
		out.props[name] = p
	}
	for _, r := range s.Required {
		out.required[r] = true
	}
	if !mergeAllOf || depth >= maxMergeDepth {
		return out
	}
	for _, member := range s.AllOf {
		sub := flatten(member, mergeAllOf, depth+1)
		for name, p := range sub.props {
			if _, ok := out.props[name]; !ok {
				out.props[name] = p
			}
		}
		for r := range sub.required {
			out.required[r] = true
		}
	}
	return out
}

// typeOf renders a short type label: "string", "array of string", "object".
func typeOf(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return "any"
	}
	s := ref.Value
	if s.Type != nil {
		types := s.Type.Slice()
		if len(types) > 0 {
			if types[0] == openapi3.TypeArray && s.Items != nil {
				return "array of " + typeOf(s.Items)
			}
			return types[0]
		}
	}
	if len(s.AllOf) > 0 || len(s.Properties) > 0 {
		return "object"
	}
	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 {
		return "one of several"
	}
	return "any"
}

func descriptionOf(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return ""
	}
	if ref.Value.Description != "" {
		return ref.Value.Description
	}
	for _, member := range ref.Value.AllOf {
		if d := descriptionOf(member); d != "" {
			return d
		}
	}
	return ""
}
