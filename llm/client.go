package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/m4xw311/restgpt/errors"
)

// Options are the generation parameters passed with every completion.
// Zero values mean "provider default".
type Options struct {
	Temperature float64
	TopK        int
	TopP        float64
	MaxTokens   int
	Stop        []string

	// ContextWindow is the prompt plus completion size in tokens. Hosted
	// providers fix it per model; local runners are started with it.
	ContextWindow int
}

// Client is an opaque text-completion service: a fully rendered prompt goes in,
// generated text comes out.
type Client interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// truncateAtStop cuts text at the earliest stop sequence. Some backends ignore
// or only partially honour stop sequences, so every client applies this too.
func truncateAtStop(text string, stop []string) string {
	cut := len(text)
	for _, s := range stop {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && i < cut {
			cut = i
		}
	}
	return text[:cut]
}

// MockLLMClient answers every prompt with a final answer built from the last
// "User query:" line. It lets the CLI run end to end without a provider.
type MockLLMClient struct{}

var userQueryLine = regexp.MustCompile(`(?m)^User query: (.*)$`)

func (m *MockLLMClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	matches := userQueryLine.FindAllStringSubmatch(prompt, -1)
	query := "nothing"
	if len(matches) > 0 {
		query = strings.TrimSpace(matches[len(matches)-1][1])
	}
	return fmt.Sprintf("No API call needed.\nFinal Answer: (mock) you asked: %s", query), nil
}

// ScriptedClient replays canned completions in order and records every
// prompt it receives. It is safe for concurrent use.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []Scripted
	Prompts   []string
	Calls     []Options
}

// Scripted is one canned completion or failure.
type Scripted struct {
	Text string
	Err  error
}

func NewScriptedClient(responses ...string) *ScriptedClient {
	s := &ScriptedClient{}
	for _, r := range responses {
		s.responses = append(s.responses, Scripted{Text: r})
	}
	return s
}

// Push appends further canned results.
func (s *ScriptedClient) Push(r ...Scripted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r...)
}

func (s *ScriptedClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	s.Calls = append(s.Calls, opts)
	if len(s.responses) == 0 {
		return "", errors.New("scripted client exhausted after %d calls", len(s.Prompts)-1)
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	if next.Err != nil {
		return "", next.Err
	}
	return truncateAtStop(next.Text, opts.Stop), nil
}

// Remaining reports how many canned results are left.
func (s *ScriptedClient) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responses)
}
