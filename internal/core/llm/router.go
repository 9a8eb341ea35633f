package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/wordbook/internal/core"
)

// Backend id prefixes. Ids without a known prefix go to the default
// provider, which is the OpenAI-compatible one.
const (
	PrefixGemini    = "gemini"
	PrefixAnthropic = "anthropic"
	PrefixOpenAI    = "openai"
	PrefixHeuristic = "heuristic"
)

// Router dispatches a request to a provider by the prefix of its backend id,
// e.g. "gemini:gemini-1.5-flash" or "anthropic:claude-3-5-haiku-latest".
type Router struct {
	providers map[string]core.LLMProvider
	fallback  core.LLMProvider
}

func NewRouter() *Router {
	return &Router{providers: make(map[string]core.LLMProvider)}
}

func (r *Router) Register(prefix string, p core.LLMProvider) {
	r.providers[prefix] = p
}

// SetDefault sets the provider for ids with no known prefix.
func (r *Router) SetDefault(p core.LLMProvider) {
	r.fallback = p
}

func (r *Router) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if p, ok := r.providers[req.Model]; ok {
		return p.Complete(ctx, req)
	}
	if prefix, model, ok := strings.Cut(req.Model, ":"); ok {
		if p, ok := r.providers[prefix]; ok {
			req.Model = model
			return p.Complete(ctx, req)
		}
	}
	if r.fallback == nil {
		return "", fmt.Errorf("%w: %q", ErrNoBackend, req.Model)
	}
	return r.fallback.Complete(ctx, req)
}

var _ core.LLMProvider = (*Router)(nil)
