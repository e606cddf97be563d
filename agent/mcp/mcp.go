// Package mcp exposes the agent as a Model Context Protocol server. The
// restgpt_query tool lets other agents delegate API tasks to it; the raw
// request tools can be exposed too so a client may make single calls itself.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/logging"
	"github.com/m4xw311/restgpt/tools"
	"github.com/m4xw311/restgpt/transcript"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolName = "restgpt_query"

	serverName = "restgpt"
)

// QueryArgs are the arguments of restgpt_query.
type QueryArgs struct {
	Query      string `json:"query"`
	Background string `json:"background,omitempty"`
}

// QueryResult is the structured result of restgpt_query.
type QueryResult struct {
	QueryID string `json:"query_id"`
	State   string `json:"state"`
	Answer  string `json:"answer,omitempty"`
	Error   string `json:"error,omitempty"`
	Steps   int    `json:"steps"`

	// History holds the executed steps, including those of a failed query.
	History []transcript.Pair `json:"history,omitempty"`
}

// RequestArgs are the arguments of the requests_* tools.
type RequestArgs struct {
	URL    string         `json:"url"`
	Params map[string]any `json:"params,omitempty"`
	Data   any            `json:"data,omitempty"`
}

// Server wraps an MCP server bound to one agent. Calls are answered one at
// a time.
type Server struct {
	agent    *agent.Agent
	logger   *log.Logger
	version  string
	server   *mcpsdk.Server
	registry *tools.ToolRegistry
}

type Option func(*Server)

// WithRequestTools also exposes every tool of the registry, one per HTTP
// method, with its own name and description.
func WithRequestTools(registry *tools.ToolRegistry) Option {
	return func(s *Server) { s.registry = registry }
}

func NewServer(a *agent.Agent, version string, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{agent: a, logger: logger, version: version}
	for _, o := range opts {
		o(s)
	}
	s.server = mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version}, nil)
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name: ToolName,
		Description: "Answer a natural-language request by planning and executing calls against the configured REST API. " +
			"Pass the request as \"query\" and any known facts (ids, names) as \"background\".",
	}, s.handleQuery)
	if s.registry != nil {
		for _, name := range s.registry.Names() {
			t, _ := s.registry.GetTool(name)
			mcpsdk.AddTool(s.server, &mcpsdk.Tool{Name: t.Name(), Description: t.Description()}, s.requestHandler(t))
		}
	}
	return s
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return errors.Wrapf(err, "mcp server stopped")
	}
	return nil
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, t)
}

// handleQuery reports query failures as tool errors, not protocol errors, so
// the calling model can read them.
func (s *Server) handleQuery(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[QueryArgs]) (*mcpsdk.CallToolResultFor[QueryResult], error) {
	args := params.Arguments
	if args.Query == "" {
		return toolError(QueryResult{State: string(agent.StateFailed), Error: "query is required"}), nil
	}

	s.logger.Info("mcp query", "query", args.Query)
	res, err := s.agent.Run(ctx, agent.Query{Text: args.Query, Background: args.Background})
	out := QueryResult{
		QueryID: res.QueryID,
		State:   string(res.State),
		Answer:  res.Answer,
		Steps:   res.Iterations,
		History: res.History,
	}
	if err != nil {
		out.Error = errors.Plain(err)
		return toolError(out), nil
	}
	return &mcpsdk.CallToolResultFor[QueryResult]{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: res.Answer}},
		StructuredContent: out,
	}, nil
}

func toolError(out QueryResult) *mcpsdk.CallToolResultFor[QueryResult] {
	var b strings.Builder
	fmt.Fprintf(&b, "query failed: %s", out.Error)
	for i, p := range out.History {
		fmt.Fprintf(&b, "\nstep %d: %s\nresult: %s", i+1, p.Step, p.Observation)
	}
	return &mcpsdk.CallToolResultFor[QueryResult]{
		IsError:           true,
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: b.String()}},
		StructuredContent: out,
	}
}

func (s *Server) requestHandler(t tools.Tool) mcpsdk.ToolHandlerFor[RequestArgs, any] {
	return func(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[RequestArgs]) (*mcpsdk.CallToolResultFor[any], error) {
		args := map[string]interface{}{"url": params.Arguments.URL, "data": params.Arguments.Data}
		if params.Arguments.Params != nil {
			args["params"] = params.Arguments.Params
		}
		s.logger.Info("mcp request", "tool", t.Name(), "url", params.Arguments.URL)
		body, err := t.Execute(ctx, args)
		if err != nil {
			return &mcpsdk.CallToolResultFor[any]{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: errors.Plain(err)}},
			}, nil
		}
		return &mcpsdk.CallToolResultFor[any]{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: body}},
		}, nil
	}
}
