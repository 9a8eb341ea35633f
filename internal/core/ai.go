package core

import (
	"context"

	"github.com/markdave123-py/wordbook/internal/models"
)

// CompletionRequest is the backend-neutral shape of one chat completion.
type CompletionRequest struct {
	Model        string
	Bucket       string // partition the chunk came from, empty when unknown
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ChunkNormalizer turns one chunk of reconstructed text into pipe-delimited records.
type ChunkNormalizer interface {
	Normalize(ctx context.Context, chunk models.Chunk) (string, error)
}
