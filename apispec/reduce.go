// Package apispec reduces an OpenAPI document to the compact endpoint
// catalog the planner and caller prompts are built from.
package apispec

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/m4xw311/restgpt/budget"
	"github.com/m4xw311/restgpt/errors"
	"github.com/tidwall/gjson"
)

// methodOrder fixes the listing order of operations under one path.
var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}

const maxDescription = 300

type ReduceOptions struct {
	// OnlyRequired keeps only required parameters and body properties.
	OnlyRequired bool
	// MergeAllOf flattens allOf compositions into a single schema before
	// extracting properties.
	MergeAllOf bool
	// Include and Exclude are doublestar patterns matched against the path.
	// An empty Include keeps everything not excluded.
	Include []string
	Exclude []string
}

// Reduce parses raw (JSON or YAML) and builds the catalog. A document that
// cannot be parsed at all fails with ErrSpecMalformed; individual entries
// lacking a usable path, method or description are skipped and counted.
func Reduce(raw []byte, opts ReduceOptions) (*Catalog, error) {
	for _, pattern := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.New("invalid endpoint pattern %q", pattern)
		}
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, errors.MarkWrap(err, errors.ErrSpecMalformed, "failed to load OpenAPI document")
	}

	cat := newCatalog()
	for _, s := range doc.Servers {
		if s != nil && s.URL != "" {
			cat.Servers = append(cat.Servers, s.URL)
		}
	}
	if doc.Paths == nil {
		return cat, nil
	}

	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := pathMap[path]
		if !strings.HasPrefix(path, "/") {
			cat.skip("%s: path must start with '/'", path)
			continue
		}
		if item == nil || len(item.Operations()) == 0 {
			cat.skip("%s: no operations", path)
			continue
		}
		keep := selected(path, opts)
		ops := item.Operations()
		for _, method := range orderedMethods(ops) {
			op := ops[method]
			id := method + " " + path
			if op == nil {
				cat.skip("%s: empty operation", id)
				continue
			}
			desc := describe(op)
			if desc == "" {
				cat.skip("%s: missing summary and description", id)
				continue
			}
			if !keep {
				cat.Filtered++
				continue
			}
			cat.add(Endpoint{
				ID:          id,
				Method:      method,
				Path:        path,
				Description: desc,
				Parameters:  parameters(item.Parameters, op.Parameters, opts.OnlyRequired),
				RequestBody: requestBody(op.RequestBody, opts),
				Response:    responseFields(op.Responses, opts.MergeAllOf),
			})
		}
	}
	return cat, nil
}

func selected(path string, opts ReduceOptions) bool {
	for _, pattern := range opts.Exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}
	if len(opts.Include) == 0 {
		return true
	}
	for _, pattern := range opts.Include {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func orderedMethods(ops map[string]*openapi3.Operation) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range methodOrder {
		if _, ok := ops[m]; ok {
			out = append(out, m)
			seen[m] = true
		}
	}
	var rest []string
	for m := range ops {
		if !seen[m] {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// describe prefers the summary; otherwise the first paragraph of the
// description, capped in length.
func describe(op *openapi3.Operation) string {
	desc := strings.TrimSpace(op.Summary)
	if desc == "" {
		desc = strings.TrimSpace(op.Description)
		if i := strings.Index(desc, "\n\n"); i >= 0 {
			desc = desc[:i]
		}
	}
	return budget.Clip(strings.Join(strings.Fields(desc), " "), maxDescription)
}

func parameters(pathParams, opParams openapi3.Parameters, onlyRequired bool) []Parameter {
	var out []Parameter
	seen := make(map[string]bool)
	add := func(ref *openapi3.ParameterRef) {
		if ref == nil || ref.Value == nil {
			return
		}
		p := ref.Value
		key := p.In + ":" + p.Name
		if seen[key] {
			return
		}
		seen[key] = true
		if onlyRequired && !p.Required {
			return
		}
		out = append(out, Parameter{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required,
			Type:        typeOf(p.Schema),
			Description: oneLine(p.Description),
		})
	}
	// Operation-level parameters override path-level ones with the same key.
	for _, p := range opParams {
		add(p)
	}
	for _, p := range pathParams {
		add(p)
	}
	return out
}

func requestBody(ref *openapi3.RequestBodyRef, opts ReduceOptions) []Parameter {
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil {
		for _, m := range ref.Value.Content {
			media = m
			break
		}
	}
	if media == nil || media.Schema == nil {
		return nil
	}
	shape := flatten(media.Schema, opts.MergeAllOf, 0)
	var out []Parameter
	for _, name := range shape.names() {
		required := shape.required[name]
		if opts.OnlyRequired && !required {
			continue
		}
		prop := shape.props[name]
		out = append(out, Parameter{
			Name:        name,
			In:          "body",
			Required:    required,
			Type:        typeOf(prop),
			Description: oneLine(descriptionOf(prop)),
		})
	}
	return out
}

func responseFields(responses *openapi3.Responses, mergeAllOf bool) []string {
	if responses == nil {
		return nil
	}
	var ref *openapi3.ResponseRef
	for _, code := range []string{"200", "201", "2XX", "default"} {
		if ref = responses.Value(code); ref != nil {
			break
		}
	}
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return flatten(media.Schema, mergeAllOf, 0).names()
}

// ScopesFromSpec lists every OAuth scope declared by the document's security
// schemes, sorted and deduplicated.
func ScopesFromSpec(raw []byte) []string {
	set := make(map[string]bool)
	gjson.GetBytes(raw, "components.securitySchemes").ForEach(func(_, scheme gjson.Result) bool {
		scheme.Get("flows").ForEach(func(_, flow gjson.Result) bool {
			flow.Get("scopes").ForEach(func(name, _ gjson.Result) bool {
				set[name.String()] = true
				return true
			})
			return true
		})
		return true
	})
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func oneLine(s string) string {
	return budget.Clip(strings.Join(strings.Fields(s), " "), maxDescription)
}
