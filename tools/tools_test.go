package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m4xw311/restgpt/errors"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"No token provided"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"q":     r.URL.Query().Get("q"),
			"ids":   r.URL.Query().Get("ids"),
			"limit": r.URL.Query().Get("limit"),
		})
	})
	mux.HandleFunc("/me/player/volume", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistryRegistersAllMethods(t *testing.T) {
	r := NewToolRegistry(nil, nil)
	want := []string{"requests_delete", "requests_get", "requests_patch", "requests_post", "requests_put"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, got[i])
		}
	}
	_, err := r.Do(context.Background(), Request{Method: "TRACE", URL: "http://x"})
	if err == nil {
		t.Fatal("expected error for unregistered method")
	}
	if !errors.Is(err, errors.ErrExecution) {
		t.Errorf("unregistered method should be an execution error, got %v", err)
	}
}

type fakeTool struct{}

func (fakeTool) Name() string        { return "requests_get" }
func (fakeTool) Description() string { return "not a request tool" }
func (fakeTool) Execute(context.Context, map[string]interface{}) (string, error) {
	return "", nil
}

func TestDoRejectsForeignTool(t *testing.T) {
	r := NewToolRegistry(nil, nil)
	r.Register(fakeTool{})
	_, err := r.Do(context.Background(), Request{Method: "GET", URL: "http://x"})
	if !errors.Is(err, errors.ErrExecution) {
		t.Errorf("expected ErrExecution, got %v", err)
	}
}

func TestDoGetWithParams(t *testing.T) {
	srv := newServer(t)
	r := NewToolRegistry(srv.Client(), map[string]string{"Authorization": "Bearer tok"})

	resp, err := r.Do(context.Background(), Request{
		Method: "GET",
		URL:    srv.URL + "/search",
		Params: map[string]interface{}{"q": "Coldplay", "ids": []interface{}{"a", "b"}, "limit": float64(5)},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	m, ok := resp.JSON.(map[string]interface{})
	if !ok {
		t.Fatalf("expected JSON object, got %T", resp.JSON)
	}
	if m["q"] != "Coldplay" || m["ids"] != "a,b" || m["limit"] != "5" {
		t.Errorf("unexpected echo %v", m)
	}
}

func TestDoNoContent(t *testing.T) {
	srv := newServer(t)
	r := NewToolRegistry(srv.Client(), nil)
	resp, err := r.Do(context.Background(), Request{Method: "put", URL: srv.URL + "/me/player/volume", Params: map[string]interface{}{"volume_percent": 20}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Status != http.StatusNoContent || resp.JSON != nil {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestDoPostBody(t *testing.T) {
	srv := newServer(t)
	tool := NewRequestTool("POST", srv.Client(), nil)
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"url":  srv.URL + "/playlists",
		"data": map[string]interface{}{"name": "Love Coldplay"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != `{"name":"Love Coldplay"}` {
		t.Errorf("unexpected body %q", out)
	}
}

func TestDoErrorsAreExecutionErrors(t *testing.T) {
	srv := newServer(t)
	r := NewToolRegistry(srv.Client(), nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"unauthorized", Request{Method: "GET", URL: srv.URL + "/search"}},
		{"wrong method", Request{Method: "GET", URL: srv.URL + "/me/player/volume"}},
		{"relative url", Request{Method: "GET", URL: "/search"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Do(context.Background(), tc.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrExecution) {
				t.Errorf("expected ErrExecution, got %v", err)
			}
		})
	}
}

func TestExecuteRequiresURL(t *testing.T) {
	tool := NewRequestTool("GET", nil, nil)
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	if !errors.Is(err, errors.ErrExecution) {
		t.Errorf("expected missing url execution error, got %v", err)
	}
	if tool.Name() != "requests_get" {
		t.Errorf("unexpected name %s", tool.Name())
	}
}
