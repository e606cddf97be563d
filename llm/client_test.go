package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/m4xw311/restgpt/config"
)

func TestTruncateAtStop(t *testing.T) {
	tests := []struct {
		text string
		stop []string
		want string
	}{
		{"search person\nAPI response: fake", []string{"\nAPI response:"}, "search person"},
		{"a\n\tAPI response: b\nAPI response: c", []string{"\nAPI response:", "\n\tAPI response:"}, "a"},
		{"no stop here", []string{"\nAPI response:"}, "no stop here"},
		{"keep", nil, "keep"},
		{"keep", []string{""}, "keep"},
	}
	for _, tc := range tests {
		if got := truncateAtStop(tc.text, tc.stop); got != tc.want {
			t.Errorf("truncateAtStop(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestScriptedClient(t *testing.T) {
	c := NewScriptedClient("first\nAPI response: hallucinated", "second")
	c.Push(Scripted{Err: fmt.Errorf("quota")})

	ctx := context.Background()
	got, err := c.Complete(ctx, "p1", Options{Stop: []string{"\nAPI response:"}})
	if err != nil || got != "first" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, err = c.Complete(ctx, "p2", Options{})
	if err != nil || got != "second" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := c.Complete(ctx, "p3", Options{}); err == nil || err.Error() != "quota" {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if _, err := c.Complete(ctx, "p4", Options{}); err == nil {
		t.Fatal("expected exhaustion error")
	}
	if len(c.Prompts) != 4 || c.Prompts[1] != "p2" {
		t.Errorf("prompts not recorded: %v", c.Prompts)
	}
}

func TestMockLLMClientAnswersLastQuery(t *testing.T) {
	prompt := "User query: example one\n...\nUser query: play some jazz\nPlan step 1:"
	got, err := (&MockLLMClient{}).Complete(context.Background(), prompt, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Final Answer:") || !strings.Contains(got, "play some jazz") {
		t.Errorf("unexpected mock answer %q", got)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	client, err := NewFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("mock provider: %v", err)
	}
	if _, ok := client.(*MockLLMClient); !ok {
		t.Errorf("expected mock client, got %T", client)
	}

	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o-mini"
	if _, err := NewFromConfig(context.Background(), cfg); err == nil {
		t.Error("expected missing key error for openai")
	}

	cfg.Secrets.OpenAIKey = "sk-test"
	client, err = NewFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openai with key: %v", err)
	}
	if _, ok := client.(*OpenAILLMClient); !ok {
		t.Errorf("expected openai client, got %T", client)
	}

	cfg.LLM.Provider = "ollama"
	cfg.LLM.BaseURL = "http://127.0.0.1:11434"
	if _, err := NewFromConfig(context.Background(), cfg); err != nil {
		t.Errorf("ollama: %v", err)
	}

	cfg.LLM.Provider = "nope"
	if _, err := NewFromConfig(context.Background(), cfg); err == nil {
		t.Error("expected unknown provider error")
	}
}
