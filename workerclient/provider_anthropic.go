package workerclient

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider against the Anthropic Claude
// Messages API for LLM provider selector "A". It is trimmed down from the
// teacher's tool-use/thinking/streaming-capable adapter to the single-turn
// prompt/system call CallLLM actually needs.
type AnthropicProvider struct {
	client      *sdk.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicProvider constructs an AnthropicProvider from an API key and
// the per-agent-kind model tuning loaded from configuration.
func NewAnthropicProvider(apiKey, model string, maxTokens int, temperature float64) *AnthropicProvider {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: model, maxTokens: maxTokens, temperature: temperature}
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt, system string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System: []sdk.TextBlockParam{
			{Text: system},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if p.temperature > 0 {
		params.Temperature = sdk.Float(p.temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		if isAnthropicRateLimited(err) {
			return "", &RateLimitedError{Cause: err}
		}
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func isAnthropicRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
