package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m4xw311/restgpt/config"
)

type chatCapture struct {
	mu      sync.Mutex
	options map[string]any
}

func (c *chatCapture) handler(t *testing.T, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Options map[string]any `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode chat request: %v", err)
		}
		c.mu.Lock()
		c.options = body.Options
		c.mu.Unlock()

		w.Header().Set("Content-Type", "application/x-ndjson")
		resp := map[string]any{
			"model":      "mistral",
			"created_at": "2024-01-01T00:00:00Z",
			"message":    map[string]any{"role": "assistant", "content": reply},
			"done":       true,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode chat response: %v", err)
		}
	}
}

func TestOllamaClientSendsContextWindow(t *testing.T) {
	capture := &chatCapture{}
	srv := httptest.NewServer(capture.handler(t, "search person X\nAPI response: made up"))
	defer srv.Close()

	cfg := config.Default()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "mistral"
	cfg.LLM.BaseURL = srv.URL
	client, err := NewFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}

	opts := OptionsFromConfig(cfg.LLM)
	opts.Stop = []string{"\nAPI response:"}
	got, err := client.Complete(context.Background(), "User query: who is X", opts)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "search person X" {
		t.Errorf("completion not cut at stop sequence: %q", got)
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if n, ok := capture.options["num_ctx"].(float64); !ok || int(n) != 8192 {
		t.Errorf("num_ctx = %v, want 8192 (options %v)", capture.options["num_ctx"], capture.options)
	}
	if k, ok := capture.options["top_k"].(float64); !ok || int(k) != 2 {
		t.Errorf("top_k = %v, want 2", capture.options["top_k"])
	}
}

func TestOllamaClientWithoutContextWindow(t *testing.T) {
	capture := &chatCapture{}
	srv := httptest.NewServer(capture.handler(t, "done"))
	defer srv.Close()

	client, err := NewOllamaLLMClient(srv.URL, "mistral", 0)
	if err != nil {
		t.Fatalf("NewOllamaLLMClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), "hi", Options{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if _, ok := capture.options["num_ctx"]; ok {
		t.Errorf("num_ctx sent without a configured window: %v", capture.options)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().LLM
	opts := OptionsFromConfig(cfg)
	if opts.ContextWindow != cfg.ContextWindow || opts.TopK != cfg.TopK || opts.Temperature != cfg.Temperature {
		t.Errorf("options not mapped from config: %+v", opts)
	}
	if opts.Stop != nil {
		t.Errorf("stop sequences are chosen per call site, got %v", opts.Stop)
	}
}
