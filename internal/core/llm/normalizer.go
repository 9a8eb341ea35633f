package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/models"
)

// DefaultModels is the preference order used when reachability is unknown.
var DefaultModels = []string{
	"THUDM/GLM-4-9B-0414",
	"Qwen/Qwen2.5-7B-Instruct",
	"Qwen/Qwen2.5-Coder-7B-Instruct",
	"Qwen/Qwen2-7B-Instruct",
	"THUDM/GLM-4.1V-9B-Thinking",
	"deepseek-ai/DeepSeek-R1-0528-Qwen3-8B",
	"THUDM/GLM-Z1-9B-0414",
	"deepseek-ai/DeepSeek-R1-Distill-Qwen-7B",
	"Qwen/Qwen3-8B",
	"internlm/internlm2_5-7b-chat",
	"THUDM/glm-4-9b-chat",
}

// NormalizerConfig tunes backend selection and the retry budget.
//
// Reachable: backends known to answer; nil means unknown, which falls back
// to Preferred followed by Fallback.
type NormalizerConfig struct {
	Preferred   string
	Reachable   []string
	Fallback    []string
	MaxRetries  int
	RetryDelay  time.Duration
	RateDelay   time.Duration
	CallTimeout time.Duration
	MaxTokens   int
	Temperature float64
}

// Normalizer sends chunks to an ordered list of candidate backends.
type Normalizer struct {
	provider   core.LLMProvider
	cfg        NormalizerConfig
	candidates []string
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewNormalizer(provider core.LLMProvider, cfg NormalizerConfig, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultModels
	}

	candidates, dropped := CandidateOrder(cfg.Preferred, cfg.Reachable, cfg.Fallback)
	if dropped {
		log.Warn("preferred backend is not reachable, using the others", slog.String("model", cfg.Preferred))
	}
	return &Normalizer{
		provider:   provider,
		cfg:        cfg,
		candidates: candidates,
		log:        log,
		sleep:      sleepCtx,
	}
}

// Candidates returns the backend order chunks are tried in.
func (n *Normalizer) Candidates() []string {
	return append([]string(nil), n.candidates...)
}

// CandidateOrder puts preferred first when it is reachable, then the other
// reachable backends, without duplicates. With reachable nil it returns
// preferred followed by fallback. dropped reports a preferred backend that
// was left out because it is unreachable.
func CandidateOrder(preferred string, reachable, fallback []string) (order []string, dropped bool) {
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	if reachable == nil {
		add(preferred)
		for _, id := range fallback {
			add(id)
		}
		return order, false
	}

	for _, id := range reachable {
		if id == preferred {
			add(preferred)
		}
	}
	dropped = preferred != "" && !seen[preferred]
	for _, id := range reachable {
		add(id)
	}
	return order, dropped
}

// Normalize returns the corrected record lines for one chunk.
//
// Transient failures are retried on the same backend up to MaxRetries times.
// Any other failure on the first candidate moves on to the next one, while
// on a fallback candidate it fails the chunk with ErrFatal. A backend that
// runs out of retries hands over to the next candidate.
func (n *Normalizer) Normalize(ctx context.Context, chunk models.Chunk) (string, error) {
	req := core.CompletionRequest{
		Bucket:       chunk.Bucket,
		SystemPrompt: SystemPrompt,
		UserPrompt:   BuildUserPrompt(chunk.Text),
		MaxTokens:    n.cfg.MaxTokens,
		Temperature:  n.cfg.Temperature,
	}

candidates:
	for ci, model := range n.candidates {
		if ci > 0 {
			n.log.Warn("switching to fallback backend", slog.String("model", model), slog.Int("chunk", chunk.Index+1))
		}
		req.Model = model

		for attempt := 1; attempt <= n.cfg.MaxRetries; attempt++ {
			res := n.call(ctx, req)

			switch res.kind {
			case outcomeSuccess:
				n.log.Debug("chunk normalized",
					slog.String("model", model), slog.Int("chunk", chunk.Index+1), slog.Int("bytes", len(res.text)))
				_ = n.sleep(ctx, n.cfg.RateDelay)
				return res.text, nil

			case outcomeTransient:
				if attempt == n.cfg.MaxRetries {
					n.log.Error("backend still failing after retries",
						slog.String("model", model), slog.Int("attempts", attempt), slog.Any("error", res.err))
					continue candidates
				}
				n.log.Warn("transient backend error, retrying",
					slog.String("model", model), slog.Int("attempt", attempt),
					slog.Duration("delay", n.cfg.RetryDelay), slog.Any("error", res.err))
				if err := n.sleep(ctx, n.cfg.RetryDelay); err != nil {
					return "", err
				}

			case outcomeFatal:
				if err := ctx.Err(); err != nil {
					return "", err
				}
				n.log.Error("backend call failed", slog.String("model", model), slog.Any("error", res.err))
				if ci == 0 {
					continue candidates
				}
				return "", fmt.Errorf("%w: chunk %d on %s: %w", ErrFatal, chunk.Index+1, model, res.err)
			}
		}
	}
	return "", fmt.Errorf("%w: chunk %d", ErrBackendsExhausted, chunk.Index+1)
}

func (n *Normalizer) call(ctx context.Context, req core.CompletionRequest) outcome {
	callCtx, cancel := context.WithTimeout(ctx, n.cfg.CallTimeout)
	defer cancel()
	return classify(n.provider.Complete(callCtx, req))
}

// ProbeReachable sends a tiny request to every backend and returns the ones
// that answered, in input order.
func ProbeReachable(ctx context.Context, provider core.LLMProvider, ids []string, timeout time.Duration, log *slog.Logger) []string {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ok := make([]bool, len(ids))
	var g errgroup.Group
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			_, err := provider.Complete(pctx, core.CompletionRequest{
				Model:       id,
				UserPrompt:  "Hello",
				MaxTokens:   10,
				Temperature: 0.1,
			})
			if err != nil {
				log.Info("backend unreachable", slog.String("model", id), slog.Any("error", err))
				return nil
			}
			log.Info("backend reachable", slog.String("model", id))
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	reachable := make([]string, 0, len(ids))
	for i, id := range ids {
		if ok[i] {
			reachable = append(reachable, id)
		}
	}
	return reachable
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ core.ChunkNormalizer = (*Normalizer)(nil)
