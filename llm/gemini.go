package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/m4xw311/restgpt/errors"
	"google.golang.org/api/option"
)

// GeminiLLMClient is a client for the Google Gemini API.
type GeminiLLMClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiLLMClient creates a new GeminiLLMClient.
func NewGeminiLLMClient(ctx context.Context, apiKey, modelName string) (*GeminiLLMClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiLLMClient{client: client, modelName: modelName}, nil
}

// Complete sends a single-turn generation request. A model handle is built per
// call because generation settings live on it.
func (g *GeminiLLMClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	if opts.Temperature > 0 {
		model.SetTemperature(float32(opts.Temperature))
	}
	if opts.TopK > 0 {
		model.SetTopK(int32(opts.TopK))
	}
	if opts.TopP > 0 {
		model.SetTopP(float32(opts.TopP))
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	model.StopSequences = opts.Stop

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Wrapf(err, "failed to send prompt to Gemini")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("received an empty response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			b.WriteString(string(v))
		default:
			return "", errors.New("unsupported part type in Gemini response: %T", v)
		}
	}
	return truncateAtStop(b.String(), opts.Stop), nil
}

// Close releases the underlying gRPC connection.
func (g *GeminiLLMClient) Close() error {
	return g.client.Close()
}
