package llm

import (
	"context"

	"github.com/m4xw311/restgpt/config"
	"github.com/m4xw311/restgpt/errors"
)

// NewFromConfig builds the client selected by cfg.LLM.Provider.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAILLMClient(cfg.Secrets.OpenAIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	case "anthropic":
		return NewAnthropicLLMClient(cfg.Secrets.AnthropicKey, cfg.LLM.Model)
	case "gemini":
		return NewGeminiLLMClient(ctx, cfg.Secrets.GeminiKey, cfg.LLM.Model)
	case "bedrock":
		return NewBedrockLLMClient(ctx, cfg.LLM.Model)
	case "ollama":
		return NewOllamaLLMClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.ContextWindow)
	case "mock", "":
		return &MockLLMClient{}, nil
	default:
		return nil, errors.New("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// OptionsFromConfig maps the configured generation parameters. Stop sequences
// are chosen per call site.
func OptionsFromConfig(cfg config.LLM) Options {
	return Options{
		Temperature: cfg.Temperature,
		TopK:        cfg.TopK,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxTokens,

		ContextWindow: cfg.ContextWindow,
	}
}
