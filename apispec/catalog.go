package apispec

import (
	"fmt"
	"strings"
)

// Parameter is the reduced view of one request parameter or body property.
type Parameter struct {
	Name        string
	In          string
	Required    bool
	Type        string
	Description string
}

// Endpoint is one reduced API operation.
type Endpoint struct {
	ID          string
	Method      string
	Path        string
	Description string
	Parameters  []Parameter
	RequestBody []Parameter
	Response    []string
}

// Catalog is the ordered, deduplicated listing of endpoints shown to the
// planner. It is not modified after Reduce returns.
type Catalog struct {
	Endpoints []Endpoint
	Servers   []string
	Skipped   int
	Filtered  int
	Problems  []string

	byID map[string]int
}

func newCatalog() *Catalog {
	return &Catalog{byID: make(map[string]int)}
}

// add appends e unless an endpoint with the same ID already exists.
func (c *Catalog) add(e Endpoint) bool {
	if _, dup := c.byID[e.ID]; dup {
		return false
	}
	c.byID[e.ID] = len(c.Endpoints)
	c.Endpoints = append(c.Endpoints, e)
	return true
}

func (c *Catalog) skip(format string, a ...any) {
	c.Skipped++
	c.Problems = append(c.Problems, fmt.Sprintf(format, a...))
}

// Len returns the number of endpoints.
func (c *Catalog) Len() int { return len(c.Endpoints) }

// Get returns the endpoint with the given ID ("GET /search").
func (c *Catalog) Get(id string) (Endpoint, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Endpoint{}, false
	}
	return c.Endpoints[i], true
}

// Lookup finds the endpoint serving method on a concrete or templated path,
// e.g. "/artists/4gzpq5/top-tracks" matches "/artists/{id}/top-tracks".
func (c *Catalog) Lookup(method, path string) (Endpoint, bool) {
	method = strings.ToUpper(method)
	if e, ok := c.Get(method + " " + path); ok {
		return e, true
	}
	for _, e := range c.Endpoints {
		if e.Method == method && matchTemplate(e.Path, path) {
			return e, true
		}
	}
	return Endpoint{}, false
}

func matchTemplate(template, path string) bool {
	ts := strings.Split(strings.Trim(template, "/"), "/")
	ps := strings.Split(strings.Trim(path, "/"), "/")
	if len(ts) != len(ps) {
		return false
	}
	for i := range ts {
		if isPlaceholder(ts[i]) {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if ts[i] != ps[i] {
			return false
		}
	}
	return true
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// Render lists endpoints one per line as "METHOD /path: description", the
// form used in the planner prompt.
func (c *Catalog) Render() string {
	var b strings.Builder
	for _, e := range c.Endpoints {
		fmt.Fprintf(&b, "%s: %s\n", e.ID, e.Description)
	}
	return b.String()
}

// RenderDocs lists endpoints with their parameters and response fields, the
// form used when turning a plan step into a concrete request.
func (c *Catalog) RenderDocs() string {
	var b strings.Builder
	for _, e := range c.Endpoints {
		b.WriteString(e.Doc())
		b.WriteString("\n")
	}
	return b.String()
}

// Doc renders a single endpoint in detail.
func (e Endpoint) Doc() string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n%s\n", e.ID, e.Description)
	if len(e.Parameters) > 0 {
		b.WriteString("Parameters:\n")
		writeParams(&b, e.Parameters)
	}
	if len(e.RequestBody) > 0 {
		b.WriteString("Request body:\n")
		writeParams(&b, e.RequestBody)
	}
	if len(e.Response) > 0 {
		fmt.Fprintf(&b, "Response fields: %s\n", strings.Join(e.Response, ", "))
	}
	return b.String()
}

func writeParams(b *strings.Builder, params []Parameter) {
	for _, p := range params {
		req := "optional"
		if p.Required {
			req = "required"
		}
		loc := ""
		if p.In != "" {
			loc = p.In + ", "
		}
		fmt.Fprintf(b, "- %s (%s%s, %s)", p.Name, loc, p.Type, req)
		if p.Description != "" {
			fmt.Fprintf(b, ": %s", p.Description)
		}
		b.WriteString("\n")
	}
}
