package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/wordbook/internal/core"
)

// DefaultSiliconFlowURL is the OpenAI-compatible endpoint the model list targets.
const DefaultSiliconFlowURL = "https://api.siliconflow.cn/v1"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenAICompatLLM talks to any /chat/completions endpoint, SiliconFlow by default.
type OpenAICompatLLM struct {
	client *resty.Client
}

func NewOpenAICompatLLM(baseURL, apiKey string) (*OpenAICompatLLM, error) {
	if apiKey == "" {
		return nil, errors.New("openai-compatible: api key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultSiliconFlowURL
	}
	cl := resty.New().
		SetHostURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &OpenAICompatLLM{client: cl}, nil
}

func (o *OpenAICompatLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	body := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.UserPrompt})

	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&chatResponse{}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion %s: %w", req.Model, err)
	}
	if resp.IsError() {
		return "", &StatusError{
			Backend:    req.Model,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s", truncate(resp.String(), 200)),
		}
	}

	out, ok := resp.Result().(*chatResponse)
	if !ok || len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion %s: no choices in response", req.Model)
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ core.LLMProvider = (*OpenAICompatLLM)(nil)
