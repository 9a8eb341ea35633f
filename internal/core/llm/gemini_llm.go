package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/markdave123-py/wordbook/internal/core"
)

type GeminiLLM struct {
	client *genai.Client
}

// NewGeminiLLM builds the client over gatewayTransport, so a gateway error
// ends the call at once instead of being retried inside the SDK until the
// call timeout. Extra options such as option.WithEndpoint are applied last.
func NewGeminiLLM(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	httpClient := &http.Client{Transport: &gatewayTransport{base: http.DefaultTransport, apiKey: apiKey}}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient)}, opts...)

	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiLLM{client: cl}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	m := g.client.GenerativeModel(model)
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	m.SetTemperature(float32(req.Temperature))

	resp, err := m.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			return "", serr
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return "", &StatusError{Backend: "gemini", StatusCode: gerr.Code, Err: err}
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// gatewayTransport authenticates requests with the API key, which a custom
// http.Client would otherwise drop, and turns 502/503/504 answers into a
// *StatusError. The SDK only retries googleapi errors, so the transport
// error reaches the normalizer after one request.
type gatewayTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *gatewayTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if !isTransientStatus(resp.StatusCode) {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_ = resp.Body.Close()
	return nil, &StatusError{
		Backend:    "gemini",
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
	}
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
