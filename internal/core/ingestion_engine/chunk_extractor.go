package ingestion_engine

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/markdave123-py/wordbook/internal/models"
)

// DefaultChunkBytes is the per-request text budget, measured in UTF-8 bytes.
const DefaultChunkBytes = 2048

var ErrSourceUnreadable = errors.New("bucket source unreadable")

// SplitText cuts text into line-aligned chunks of at most budget bytes.
// Lines keep their terminators, so concatenating the chunks gives text back.
// A single line longer than budget becomes a chunk of its own.
func SplitText(text string, budget int) []models.Chunk {
	if text == "" {
		return nil
	}
	if budget <= 0 {
		budget = DefaultChunkBytes
	}
	if len(text) <= budget {
		return []models.Chunk{{Index: 0, Text: text}}
	}

	var (
		out []models.Chunk
		cur strings.Builder
	)
	seal := func() {
		out = append(out, models.Chunk{Index: len(out), Text: cur.String()})
		cur.Reset()
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(line) > budget {
			seal()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		seal()
	}
	return out
}

// SplitFile reads a bucket blob and chunks it. A read failure yields no chunks.
func SplitFile(path string, budget int) ([]models.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	return SplitText(string(data), budget), nil
}
