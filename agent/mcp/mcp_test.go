package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/tools"
	"github.com/m4xw311/restgpt/transcript"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerPlanner struct{}

func (answerPlanner) Plan(_ context.Context, query, background string, _ []transcript.Pair) (string, error) {
	if query == "loop" {
		return "keep going", nil
	}
	return "No API call needed. " + background + " " + query, nil
}

type nopCaller struct{}

func (nopCaller) Call(_ context.Context, step, _ string, _ []transcript.Pair) (string, error) {
	return "ok: " + step, nil
}

func connect(t *testing.T, opts ...Option) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	a, err := agent.New(agent.Settings{MaxIterations: 1}, answerPlanner{}, nopCaller{})
	require.NoError(t, err)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	_, err = NewServer(a, "test", nil, opts...).Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func text(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "unexpected content type %T", res.Content[0])
	return tc.Text
}

func TestListsQueryTool(t *testing.T) {
	session := connect(t)
	tools, err := session.ListTools(context.Background(), &mcpsdk.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, ToolName, tools.Tools[0].Name)
}

func TestCallQueryTool(t *testing.T) {
	session := connect(t)
	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"query": "who is X?", "background": "X has id 42."},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "X has id 42. who is X?", text(t, res))
}

func TestCallQueryToolFailures(t *testing.T) {
	session := connect(t)

	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"query": "loop"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "plan did not converge")
	assert.Contains(t, text(t, res), "step 1: keep going\nresult: ok: keep going")
	structured, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "unexpected structured content %T", res.StructuredContent)
	assert.Equal(t, "FAILED", structured["state"])
	history, ok := structured["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.Equal(t, map[string]any{"step": "keep going", "observation": "ok: keep going"}, history[0])

	res, err = session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"query": ""},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "query is required")
}

func TestRequestTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/people/42" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42,"name":"` + r.URL.Query().Get("lang") + `"}`))
	}))
	defer srv.Close()

	session := connect(t, WithRequestTools(tools.NewToolRegistry(srv.Client(), nil)))
	list, err := session.ListTools(context.Background(), &mcpsdk.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, list.Tools, 6)

	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "requests_get",
		Arguments: map[string]any{"url": srv.URL + "/people/42", "params": map[string]any{"lang": "en"}},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, `{"id":42,"name":"en"}`, text(t, res))

	res, err = session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "requests_get",
		Arguments: map[string]any{"url": srv.URL + "/people/7"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "404")
}
