package ingestion_engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/core/layout"
)

// OtherBucket collects pages whose text starts with no Latin letter.
const OtherBucket = "other"

var (
	errNoContent = errors.New("ocr envelope has no content")

	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true}
)

// FormatStats summarises one bucket of the format stage.
type FormatStats struct {
	Bucket             string
	Pages              int
	EmptyPages         int
	AnnotationsDropped int
	BreaksInserted     int
	Output             string
}

// PageFormatter turns per-page OCR sources into one reconstructed text blob
// per bucket. Sources live under pagesDir/<bucket>/ and may be Aliyun OCR
// JSON envelopes, plain .txt pages or images handed to the recognizer.
type PageFormatter struct {
	pagesDir   string
	textDir    string
	recognizer core.PageRecognizer
	log        *slog.Logger
}

// NewPageFormatter builds a formatter. recognizer may be nil, in which case
// image pages are skipped.
func NewPageFormatter(pagesDir, textDir string, recognizer core.PageRecognizer, log *slog.Logger) *PageFormatter {
	if log == nil {
		log = slog.Default()
	}
	return &PageFormatter{pagesDir: pagesDir, textDir: textDir, recognizer: recognizer, log: log}
}

// Buckets lists the bucket names found under pagesDir. Loose pages at the
// top level are assigned with DetectBucket.
func (f *PageFormatter) Buckets() ([]string, error) {
	groups, err := f.groups()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Format reconstructs every selected bucket. An empty selection formats all.
func (f *PageFormatter) Format(ctx context.Context, selected []string) ([]FormatStats, error) {
	groups, err := f.groups()
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		want[s] = true
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		if len(want) == 0 || want[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []FormatStats
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		st, err := f.formatBucket(ctx, name, groups[name])
		if err != nil {
			f.log.Warn("bucket format failed", slog.String("bucket", name), slog.Any("error", err))
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (f *PageFormatter) formatBucket(ctx context.Context, name string, pages []string) (FormatStats, error) {
	st := FormatStats{Bucket: name, Pages: len(pages)}
	SortPages(pages)

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		raw, err := f.readPage(ctx, p)
		if err != nil {
			f.log.Warn("page unreadable, skipped", slog.String("page", p), slog.Any("error", err))
			st.EmptyPages++
			continue
		}
		if strings.TrimSpace(raw) == "" {
			st.EmptyPages++
			continue
		}
		res := layout.Reconstruct(norm.NFC.String(raw))
		st.AnnotationsDropped += res.AnnotationsDropped
		st.BreaksInserted += res.BreaksInserted
		texts = append(texts, res.Text)
	}
	if len(texts) == 0 {
		return st, fmt.Errorf("no page text for bucket %q", name)
	}

	dir := filepath.Join(f.textDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return st, fmt.Errorf("create text dir: %w", err)
	}
	st.Output = filepath.Join(dir, name+".txt")
	if err := os.WriteFile(st.Output, []byte(strings.Join(texts, "\n")), 0o644); err != nil {
		return st, fmt.Errorf("write bucket text: %w", err)
	}

	f.log.Info("bucket formatted",
		slog.String("bucket", name), slog.Int("pages", st.Pages), slog.Int("empty", st.EmptyPages),
		slog.Int("annotations_dropped", st.AnnotationsDropped), slog.Int("breaks_inserted", st.BreaksInserted))
	return st, nil
}

// groups maps bucket names to their page files.
func (f *PageFormatter) groups() (map[string][]string, error) {
	entries, err := os.ReadDir(f.pagesDir)
	if err != nil {
		return nil, fmt.Errorf("read pages dir: %w", err)
	}

	groups := make(map[string][]string)
	for _, e := range entries {
		p := filepath.Join(f.pagesDir, e.Name())
		if e.IsDir() {
			pages, err := collectPages(p)
			if err != nil {
				return nil, err
			}
			if len(pages) > 0 {
				name := strings.ToLower(e.Name())
				groups[name] = append(groups[name], pages...)
			}
			continue
		}
		if !isPageFile(e.Name()) {
			continue
		}
		// Loose images are not recognized here; they land in OtherBucket.
		name := OtherBucket
		if !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			if raw, err := f.readPage(context.Background(), p); err == nil {
				name = DetectBucket(raw)
			}
		}
		groups[name] = append(groups[name], p)
	}
	return groups, nil
}

func collectPages(dir string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isPageFile(d.Name()) {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return pages, nil
}

func isPageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".txt" || imageExts[ext]
}

func (f *PageFormatter) readPage(ctx context.Context, p string) (string, error) {
	ext := strings.ToLower(filepath.Ext(p))
	switch {
	case ext == ".json":
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return ParseOCREnvelope(data)
	case ext == ".txt":
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case imageExts[ext]:
		if f.recognizer == nil {
			return "", errors.New("no page recognizer configured")
		}
		return f.recognizer.Recognize(ctx, p)
	}
	return "", fmt.Errorf("unsupported page type %q", ext)
}

// ParseOCREnvelope extracts the page text from an Aliyun OCR response,
// whose Data field is itself a JSON document carrying content.
func ParseOCREnvelope(data []byte) (string, error) {
	var outer struct {
		Data *string `json:"Data"`
	}
	if err := json.Unmarshal(data, &outer); err != nil {
		return "", fmt.Errorf("decode ocr envelope: %w", err)
	}
	if outer.Data == nil {
		return "", fmt.Errorf("%w: missing Data", errNoContent)
	}

	var inner struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(*outer.Data), &inner); err != nil {
		return "", fmt.Errorf("decode ocr Data: %w", err)
	}
	if inner.Content == nil {
		return "", fmt.Errorf("%w: missing content", errNoContent)
	}
	return *inner.Content, nil
}

// DetectBucket names the bucket of a page by the first Latin letter of
// its text, or OtherBucket when there is none.
func DetectBucket(text string) string {
	for _, r := range text {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return string(unicode.ToLower(r))
		}
	}
	return OtherBucket
}

// SortPages orders page files by directory, then by numeric stem when the
// stem is a number, falling back to the file name.
func SortPages(pages []string) {
	sort.SliceStable(pages, func(a, b int) bool {
		da, db := filepath.Dir(pages[a]), filepath.Dir(pages[b])
		if da != db {
			return da < db
		}
		na, okA := pageNumber(pages[a])
		nb, okB := pageNumber(pages[b])
		switch {
		case okA && okB:
			if na != nb {
				return na < nb
			}
		case okA != okB:
			return okA
		}
		return filepath.Base(pages[a]) < filepath.Base(pages[b])
	})
}

func pageNumber(p string) (int, bool) {
	base := filepath.Base(p)
	n, err := strconv.Atoi(strings.TrimSuffix(base, filepath.Ext(base)))
	return n, err == nil
}
