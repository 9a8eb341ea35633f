package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/markdave123-py/wordbook/internal/core"
)

type recordingProvider struct {
	models []string
}

func (r *recordingProvider) Complete(_ context.Context, req core.CompletionRequest) (string, error) {
	r.models = append(r.models, req.Model)
	return req.Model, nil
}

func TestRouter(t *testing.T) {
	gemini, anthropic, heuristic, compat := &recordingProvider{}, &recordingProvider{}, &recordingProvider{}, &recordingProvider{}
	r := NewRouter()
	r.Register(PrefixGemini, gemini)
	r.Register(PrefixAnthropic, anthropic)
	r.Register(PrefixHeuristic, heuristic)
	r.Register(PrefixOpenAI, compat)
	r.SetDefault(compat)

	ctx := context.Background()
	for _, id := range []string{
		"gemini:gemini-1.5-flash",
		"anthropic:claude-3-5-haiku-latest",
		"heuristic",
		"openai:gpt-4o-mini",
		"Qwen/Qwen2.5-7B-Instruct",
	} {
		_, err := r.Complete(ctx, core.CompletionRequest{Model: id})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"gemini-1.5-flash"}, gemini.models)
	assert.Equal(t, []string{"claude-3-5-haiku-latest"}, anthropic.models)
	assert.Equal(t, []string{"heuristic"}, heuristic.models)
	assert.Equal(t, []string{"gpt-4o-mini", "Qwen/Qwen2.5-7B-Instruct"}, compat.models)
}

func TestRouter_NoDefault(t *testing.T) {
	_, err := NewRouter().Complete(context.Background(), core.CompletionRequest{Model: "Qwen/Qwen3-8B"})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestOpenAICompatLLM(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"|abandon|放弃|vt.|0|NULL|"}}]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAICompatLLM(srv.URL+"/v1", "sk-test")
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), core.CompletionRequest{
		Model:        "Qwen/Qwen2.5-7B-Instruct",
		SystemPrompt: SystemPrompt,
		UserPrompt:   BuildUserPrompt("abandon 放弃"),
		MaxTokens:    2048,
		Temperature:  0.2,
	})

	require.NoError(t, err)
	assert.Equal(t, "|abandon|放弃|vt.|0|NULL|", out)
	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", got.Model)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAICompatLLM_StatusErrors(t *testing.T) {
	code := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", code)
	}))
	defer srv.Close()

	p, err := NewOpenAICompatLLM(srv.URL, "sk-test")
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), core.CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	code = http.StatusUnauthorized
	_, err = p.Complete(context.Background(), core.CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.False(t, IsTransient(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestGeminiLLM_GatewayErrorIsTransient(t *testing.T) {
	var hits atomic.Int32
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotKey.Store(r.Header.Get("x-goog-api-key"))
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewGeminiLLM(context.Background(), "g-test", option.WithEndpoint(srv.URL))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Complete(context.Background(), core.CompletionRequest{Model: "gemini-1.5-flash", UserPrompt: "abandon 放弃"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "g-test", gotKey.Load())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "gemini", se.Backend)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestGeminiLLM_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-1.5-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"abandon vt. 放弃"}]}}]}`))
	}))
	defer srv.Close()

	p, err := NewGeminiLLM(context.Background(), "g-test", option.WithEndpoint(srv.URL))
	require.NoError(t, err)
	defer p.Close()

	out, err := p.Complete(context.Background(), core.CompletionRequest{UserPrompt: "abandon 放弃"})
	require.NoError(t, err)
	assert.Equal(t, "abandon vt. 放弃", out)
}

func TestAnthropicLLM_GatewayErrorNotRetriedInSDK(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicLLM("a-test", anthropicopt.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), core.CompletionRequest{Model: "claude-3-5-haiku-latest", UserPrompt: "abandon 放弃"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewProviders_RequireKeys(t *testing.T) {
	_, err := NewOpenAICompatLLM("", "")
	assert.Error(t, err)
	_, err = NewAnthropicLLM("")
	assert.Error(t, err)
	_, err = NewGeminiLLM(context.Background(), "")
	assert.Error(t, err)
}

func TestExtractContent(t *testing.T) {
	raw := "abandon 放弃\nability 能力\n"
	assert.Equal(t, raw, ExtractContent(BuildUserPrompt(raw)))
	assert.Equal(t, "Hello", ExtractContent("Hello"))
}
