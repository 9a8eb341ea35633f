package ingestion_engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer map[string]string

func (s stubRecognizer) Recognize(_ context.Context, p string) (string, error) {
	return s[filepath.Base(p)], nil
}

func envelope(t *testing.T, content string) []byte {
	t.Helper()
	inner, err := json.Marshal(map[string]string{"content": content})
	require.NoError(t, err)
	outer, err := json.Marshal(map[string]string{"Data": string(inner)})
	require.NoError(t, err)
	return outer
}

func writePage(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestParseOCREnvelope(t *testing.T) {
	text, err := ParseOCREnvelope(envelope(t, "abandon vt. 放弃"))
	require.NoError(t, err)
	assert.Equal(t, "abandon vt. 放弃", text)

	_, err = ParseOCREnvelope([]byte(`{"RequestId":"x"}`))
	assert.ErrorIs(t, err, errNoContent)

	_, err = ParseOCREnvelope([]byte(`{"Data":"{\"width\":10}"}`))
	assert.ErrorIs(t, err, errNoContent)

	_, err = ParseOCREnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestDetectBucket(t *testing.T) {
	assert.Equal(t, "a", DetectBucket("12 Abandon vt. 放弃"))
	assert.Equal(t, "z", DetectBucket("动物园 zoo"))
	assert.Equal(t, OtherBucket, DetectBucket("放弃 123"))
	assert.Equal(t, OtherBucket, DetectBucket(""))
}

func TestSortPages(t *testing.T) {
	pages := []string{"a/10.json", "a/2.json", "a/1.json", "a/cover.json", "b/1.json"}
	SortPages(pages)
	assert.Equal(t, []string{"a/1.json", "a/2.json", "a/10.json", "a/cover.json", "b/1.json"}, pages)
}

func TestPageFormatter_Format(t *testing.T) {
	root := t.TempDir()
	pages := filepath.Join(root, "json")
	text := filepath.Join(root, "result")

	writePage(t, filepath.Join(pages, "a", "10.json"), envelope(t, "able adj. 能 够"))
	writePage(t, filepath.Join(pages, "a", "2.json"), envelope(t, "abandon vt. 放弃→ ability (12/3) n. 能力"))
	writePage(t, filepath.Join(pages, "a", "3.txt"), []byte("   "))
	writePage(t, filepath.Join(pages, "a", "nested", "1.png"), []byte("png"))
	writePage(t, filepath.Join(pages, "b", "1.txt"), []byte("bag n. 包"))
	writePage(t, filepath.Join(pages, "c", "1.json"), []byte(`{"Data":"{}"}`))

	f := NewPageFormatter(pages, text, stubRecognizer{"1.png": "about adv. 大约"}, nil)

	names, err := f.Buckets()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	stats, err := f.Format(context.Background(), []string{"a", "c"})
	require.NoError(t, err)
	require.Len(t, stats, 1)

	st := stats[0]
	assert.Equal(t, "a", st.Bucket)
	assert.Equal(t, 4, st.Pages)
	assert.Equal(t, 1, st.EmptyPages)
	assert.Equal(t, 1, st.AnnotationsDropped)
	assert.Equal(t, 1, st.BreaksInserted)

	got, err := os.ReadFile(filepath.Join(text, "a", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abandon vt. 放弃 \nability  n. 能力\nable adj. 能够\nabout adv. 大约", string(got))

	assert.NoFileExists(t, filepath.Join(text, "b", "b.txt"))
	assert.NoFileExists(t, filepath.Join(text, "c", "c.txt"))
}

func TestPageFormatter_LoosePagesAreBucketed(t *testing.T) {
	root := t.TempDir()
	pages := filepath.Join(root, "json")
	writePage(t, filepath.Join(pages, "1.json"), envelope(t, "Cabin n. 小屋"))
	writePage(t, filepath.Join(pages, "2.txt"), []byte("目录"))
	writePage(t, filepath.Join(pages, "readme.md"), []byte("ignored"))

	f := NewPageFormatter(pages, filepath.Join(root, "result"), nil, nil)
	names, err := f.Buckets()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", OtherBucket}, names)

	stats, err := f.Format(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}
