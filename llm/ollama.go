package llm

import (
	"context"

	"github.com/m4xw311/restgpt/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaLLMClient runs completions against a local Ollama server, the usual
// home for quantized instruct models such as Mistral 7B.
type OllamaLLMClient struct {
	llm llms.Model
}

// NewOllamaLLMClient creates a client for modelName. serverURL may be empty to
// use the langchaingo default (OLLAMA_HOST or localhost). A positive numCtx
// sets the runner's context window; Ollama's own default is far smaller than
// the planner prompt.
func NewOllamaLLMClient(serverURL, modelName string, numCtx int) (*OllamaLLMClient, error) {
	opts := []ollama.Option{ollama.WithModel(modelName)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	if numCtx > 0 {
		opts = append(opts, ollama.WithRunnerNumCtx(numCtx))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create ollama client")
	}
	return &OllamaLLMClient{llm: model}, nil
}

func (o *OllamaLLMClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	callOpts := []llms.CallOption{llms.WithStopWords(opts.Stop)}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.TopK > 0 {
		callOpts = append(callOpts, llms.WithTopK(opts.TopK))
	}
	if opts.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(opts.TopP))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, callOpts...)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send prompt to Ollama")
	}
	return truncateAtStop(out, opts.Stop), nil
}
