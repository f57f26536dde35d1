package workerclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider against the OpenAI Chat Completions
// API for LLM provider selector "B". The teacher's own reference adapter
// for this provider imports github.com/sashabaranov/go-openai, a package
// the teacher's go.mod does not actually list; this adapter follows the
// teacher's go.mod instead and is built on github.com/openai/openai-go.
type OpenAIProvider struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIProvider constructs an OpenAIProvider from an API key and the
// per-agent-kind model tuning loaded from configuration.
func NewOpenAIProvider(apiKey, model string, maxTokens int, temperature float64) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: client, model: model, maxTokens: maxTokens, temperature: temperature}
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt, system string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(p.maxTokens)),
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if isOpenAIRateLimited(err) {
			return "", &RateLimitedError{Cause: err}
		}
		return "", fmt.Errorf("openai chat.completions.new: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func isOpenAIRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
