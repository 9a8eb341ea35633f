package llm

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/core/parser"
)

// HeuristicLLM normalizes chunks offline with the part-of-speech entry
// parser. It answers every request, which makes it the backend of last resort.
//
// Phrase lines anchor to the last headword seen, so the parser state is kept
// per bucket and carries across the chunks of one bucket. Requests without a
// bucket get a fresh parser.
type HeuristicLLM struct {
	mu      sync.Mutex
	parsers map[string]*parser.EntryParser
}

func NewHeuristicLLM() *HeuristicLLM {
	return &HeuristicLLM{parsers: make(map[string]*parser.EntryParser)}
}

func (h *HeuristicLLM) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	records := h.parserFor(req.Bucket).ParseText(ExtractContent(req.UserPrompt))
	return parser.FormatRecords(records), nil
}

func (h *HeuristicLLM) parserFor(bucket string) *parser.EntryParser {
	if bucket == "" {
		return parser.NewEntryParser("")
	}
	if p, ok := h.parsers[bucket]; ok {
		return p
	}

	// only single-letter buckets constrain anchors by initial
	letter := ""
	if utf8.RuneCountInString(bucket) == 1 {
		letter = bucket
	}
	if h.parsers == nil {
		h.parsers = make(map[string]*parser.EntryParser)
	}
	p := parser.NewEntryParser(letter)
	h.parsers[bucket] = p
	return p
}

var _ core.LLMProvider = (*HeuristicLLM)(nil)
