package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/wordbook/internal/core"
)

var _ core.PageRecognizer = (*DocconvRecognizer)(nil)

// DocconvRecognizer reads the text of a scanned page through docconv.
// Images only yield text when docconv is built with the ocr tag.
type DocconvRecognizer struct {
	log *slog.Logger
}

func NewDocconvRecognizer(log *slog.Logger) *DocconvRecognizer {
	if log == nil {
		log = slog.Default()
	}
	return &DocconvRecognizer{log: log}
}

// Recognize returns the raw text of one page image. A page docconv cannot
// read yields an error and the caller treats it as empty.
func (r *DocconvRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read page image: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath)))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, false)
	if err != nil {
		return "", fmt.Errorf("docconv %s (%s): %w", filepath.Base(imagePath), contentType, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Body) == "" {
		r.log.Warn("docconv returned no text", slog.String("page", imagePath))
	}
	return res.Body, nil
}
