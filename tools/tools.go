package tools

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/m4xw311/restgpt/errors"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolRegistry holds all available tools.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry registers one request tool per supported HTTP method. A nil
// client means http.DefaultClient.
func NewToolRegistry(client *http.Client, headers map[string]string) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]Tool)}
	for _, method := range Methods {
		r.Register(NewRequestTool(method, client, headers))
	}
	return r
}

func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *ToolRegistry) GetTool(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists the registered tools in sorted order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Do sends req through the request tool registered for its method.
func (r *ToolRegistry) Do(ctx context.Context, req Request) (*Response, error) {
	name := toolName(req.Method)
	t, ok := r.GetTool(name)
	if !ok {
		return nil, errors.Mark(errors.ErrExecution, "no tool registered for method %s", strings.ToUpper(req.Method))
	}
	rt, ok := t.(*RequestTool)
	if !ok {
		return nil, errors.Mark(errors.ErrExecution, "tool %s is not a request tool", name)
	}
	return rt.Do(ctx, req)
}
