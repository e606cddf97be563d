package llm

import (
	"context"

	"github.com/m4xw311/restgpt/errors"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI accepts at most four stop sequences per request.
const openAIMaxStop = 4

// OpenAILLMClient is a client for the OpenAI Chat Completion API.
type OpenAILLMClient struct {
	client *openai.Client
	model  string
}

// NewOpenAILLMClient creates a new OpenAILLMClient. baseURL may be empty to
// use the public endpoint; any OpenAI-compatible server works.
func NewOpenAILLMClient(apiKey, baseURL, modelName string) (*OpenAILLMClient, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	return &OpenAILLMClient{client: &c, model: modelName}, nil
}

// Complete sends the prompt as a single user message.
func (o *OpenAILLMClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if stop := limitStop(opts.Stop, openAIMaxStop); len(stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stop}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send prompt to OpenAI")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return truncateAtStop(resp.Choices[0].Message.Content, opts.Stop), nil
}

func limitStop(stop []string, max int) []string {
	if len(stop) > max {
		return stop[:max]
	}
	return stop
}
