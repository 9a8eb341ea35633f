package app

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/markdave123-py/wordbook/internal/config"
	"github.com/markdave123-py/wordbook/internal/core/llm"
)

// Backends is the set of LLM providers configured for a run.
type Backends struct {
	Router *llm.Router
	ids    []string
	closer []func() error
}

// NewBackends registers a provider for every API key present. The heuristic
// backend needs no key and is always available.
func NewBackends(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (*Backends, error) {
	if log == nil {
		log = slog.Default()
	}
	b := &Backends{Router: llm.NewRouter()}
	b.Router.Register(llm.PrefixHeuristic, llm.NewHeuristicLLM())

	registered := map[string]bool{llm.PrefixHeuristic: true}

	if cfg.SiliconFlowKey != "" {
		p, err := llm.NewOpenAICompatLLM(cfg.SiliconFlowURL, cfg.SiliconFlowKey)
		if err != nil {
			return nil, err
		}
		b.Router.Register(llm.PrefixOpenAI, p)
		b.Router.SetDefault(p)
		registered[llm.PrefixOpenAI] = true
	}
	if cfg.GeminiKey != "" {
		p, err := llm.NewGeminiLLM(ctx, cfg.GeminiKey)
		if err != nil {
			return nil, err
		}
		b.Router.Register(llm.PrefixGemini, p)
		b.closer = append(b.closer, p.Close)
		registered[llm.PrefixGemini] = true
	}
	if cfg.AnthropicKey != "" {
		p, err := llm.NewAnthropicLLM(cfg.AnthropicKey)
		if err != nil {
			return nil, err
		}
		b.Router.Register(llm.PrefixAnthropic, p)
		registered[llm.PrefixAnthropic] = true
	}

	models := cfg.Models
	if len(models) == 0 {
		models = llm.DefaultModels
	}
	candidates := append([]string{cfg.PreferredModel}, models...)
	for _, id := range candidates {
		switch {
		case slices.Contains(b.ids, id):
		case routable(id, registered):
			b.ids = append(b.ids, id)
		default:
			log.Debug("backend has no provider configured, skipped", slog.String("model", id))
		}
	}
	if len(b.ids) == 0 {
		log.Warn("no remote backend configured, using the heuristic backend")
		b.ids = []string{llm.PrefixHeuristic}
	}
	return b, nil
}

// IDs returns the configured backend ids that have a provider, preferred first.
func (b *Backends) IDs() []string {
	return append([]string(nil), b.ids...)
}

func (b *Backends) Close() {
	for _, c := range b.closer {
		_ = c()
	}
}

// routable reports whether id reaches a registered provider. Ids without a
// known prefix go to the OpenAI-compatible default.
func routable(id string, registered map[string]bool) bool {
	if id == "" {
		return false
	}
	if registered[id] {
		return true
	}
	if prefix, _, ok := strings.Cut(id, ":"); ok {
		switch prefix {
		case llm.PrefixGemini, llm.PrefixAnthropic, llm.PrefixOpenAI, llm.PrefixHeuristic:
			return registered[prefix]
		}
	}
	return registered[llm.PrefixOpenAI]
}

// NewNormalizer probes the backends when asked to and builds the chunk
// normalizer over the reachable ones.
func (b *Backends) NewNormalizer(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) *llm.Normalizer {
	if log == nil {
		log = slog.Default()
	}
	ids := b.IDs()

	var reachable []string
	if cfg.ProbeModels {
		reachable = llm.ProbeReachable(ctx, b.Router, ids, cfg.ProbeTimeout, log)
		if len(reachable) == 0 {
			log.Warn("no backend answered the probe, trying all of them")
			reachable = nil
		}
	}

	preferred := cfg.PreferredModel
	if !slices.Contains(ids, preferred) {
		if preferred != "" {
			log.Warn("preferred backend has no provider, using the first configured one",
				slog.String("preferred", preferred), slog.String("using", ids[0]))
		}
		preferred = ids[0]
	}

	return llm.NewNormalizer(b.Router, llm.NormalizerConfig{
		Preferred:   preferred,
		Reachable:   reachable,
		Fallback:    ids,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		RateDelay:   cfg.RateDelay,
		CallTimeout: cfg.CallTimeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, log)
}
