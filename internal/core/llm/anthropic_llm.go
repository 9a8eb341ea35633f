package llm

import (
	"context"
	"errors"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/markdave123-py/wordbook/internal/core"
)

type AnthropicLLM struct {
	client anthropic.Client
}

// NewAnthropicLLM turns off the SDK's own retries; the normalizer owns the
// retry schedule. Extra options such as option.WithBaseURL are applied last.
func NewAnthropicLLM(apiKey string, opts ...option.RequestOption) (*AnthropicLLM, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is empty")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &AnthropicLLM{client: anthropic.NewClient(opts...)}, nil
}

func (a *AnthropicLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var aerr *anthropic.Error
		if errors.As(err, &aerr) {
			return "", &StatusError{Backend: "anthropic", StatusCode: aerr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

var _ core.LLMProvider = (*AnthropicLLM)(nil)
