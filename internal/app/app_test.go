package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/wordbook/internal/config"
	"github.com/markdave123-py/wordbook/internal/core/llm"
	"github.com/markdave123-py/wordbook/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			PagesDir:  filepath.Join(root, "json"),
			TextDir:   filepath.Join(root, "result"),
			OutputDir: filepath.Join(root, "ai"),
		},
		Pipeline: config.PipelineConfig{
			Buckets:        "all",
			ChunkBytes:     2048,
			Workers:        2,
			BucketAttempts: 1,
		},
		LLM: config.LLMConfig{
			PreferredModel: "THUDM/GLM-4-9B-0414",
			MaxRetries:     1,
			CallTimeout:    5 * time.Second,
			ProbeTimeout:   time.Second,
			MaxTokens:      512,
		},
		Database: config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(root, "words.db")},
		Server:   config.ServerConfig{Port: "0", AllowedOrigins: []string{"*"}},
		Storage:  config.StorageConfig{Prefix: "wordbook"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewApp(context.Background(), cfg, NewLogger(config.LogConfig{Level: "error"}, io.Discard))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunPipeline_OfflineEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Paths.PagesDir, "a", "1.txt"), "abandon vt. 放弃 ability n. 能力")

	envelope, err := json.Marshal(map[string]string{"Data": `{"content":"bag n. 包"}`})
	require.NoError(t, err)
	writeFile(t, filepath.Join(cfg.Paths.PagesDir, "b", "1.json"), string(envelope))

	a := newTestApp(t, cfg)
	ctx := context.Background()

	rep, err := a.RunPipeline(ctx, StageAll)
	require.NoError(t, err)
	require.Len(t, rep.Formatted, 2)
	require.Len(t, rep.Runs, 2)
	assert.Zero(t, rep.Failed())
	for _, r := range rep.Runs {
		assert.Equal(t, models.BucketDone, r.Status, r.Error)
	}

	got, err := a.DBClient.SampleRecords(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "abandon", got[0].Headword)
	assert.Equal(t, "vt.", *got[0].PartOfSpeech)
	assert.Equal(t, "ability", got[1].Headword)

	assert.FileExists(t, filepath.Join(cfg.Paths.TextDir, "a", "a.txt"))
	assert.FileExists(t, filepath.Join(cfg.Paths.OutputDir, "a", "chunk_1.txt"))
	assert.FileExists(t, filepath.Join(cfg.Paths.OutputDir, "b", "b.txt"))

	again, err := a.RunPipeline(ctx, StageNormalize)
	require.NoError(t, err)
	require.Len(t, again.Runs, 2)
	assert.Equal(t, 1, again.Runs[0].Recovered)

	runs, err := a.DBClient.LatestRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunPipeline_Selection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.Buckets = "b"
	writeFile(t, filepath.Join(cfg.Paths.PagesDir, "a", "1.txt"), "abandon vt. 放弃")
	writeFile(t, filepath.Join(cfg.Paths.PagesDir, "b", "1.txt"), "bag n. 包")

	a := newTestApp(t, cfg)
	rep, err := a.RunPipeline(context.Background(), StageFormat)
	require.NoError(t, err)
	require.Len(t, rep.Formatted, 1)
	assert.Equal(t, "b", rep.Formatted[0].Bucket)
	assert.Empty(t, rep.Runs)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.TextDir, "a", "a.txt"))
}

func TestRunPipeline_UnknownStage(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	_, err := a.RunPipeline(context.Background(), "export")
	assert.Error(t, err)
}

func TestNewBackends_OfflineUsesHeuristic(t *testing.T) {
	b, err := NewBackends(context.Background(), config.LLMConfig{PreferredModel: "THUDM/GLM-4-9B-0414"}, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []string{llm.PrefixHeuristic}, b.IDs())

	n := b.NewNormalizer(context.Background(), config.LLMConfig{PreferredModel: "THUDM/GLM-4-9B-0414", MaxRetries: 1}, nil)
	assert.Equal(t, []string{llm.PrefixHeuristic}, n.Candidates())
}

func TestNewNormalizer_WarnsWhenPreferredIsUnserved(t *testing.T) {
	b, err := NewBackends(context.Background(), config.LLMConfig{}, nil)
	require.NoError(t, err)
	defer b.Close()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	n := b.NewNormalizer(context.Background(), config.LLMConfig{PreferredModel: "gemini:gemini-1.5-pro", MaxRetries: 1}, log)
	assert.Equal(t, []string{llm.PrefixHeuristic}, n.Candidates())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "preferred=gemini:gemini-1.5-pro")
	assert.Contains(t, buf.String(), "using="+llm.PrefixHeuristic)

	buf.Reset()
	b.NewNormalizer(context.Background(), config.LLMConfig{PreferredModel: llm.PrefixHeuristic, MaxRetries: 1}, log)
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestNewBackends_RoutesByKey(t *testing.T) {
	b, err := NewBackends(context.Background(), config.LLMConfig{
		PreferredModel: "anthropic:claude-3-5-haiku-latest",
		Models:         []string{"Qwen/Qwen2.5-7B-Instruct", "gemini:gemini-1.5-flash", "heuristic", "anthropic:claude-3-5-haiku-latest"},
		AnthropicKey:   "sk-test",
	}, nil)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []string{"anthropic:claude-3-5-haiku-latest", "heuristic"}, b.IDs())
}

func TestRoutable(t *testing.T) {
	registered := map[string]bool{llm.PrefixOpenAI: true, llm.PrefixHeuristic: true}
	assert.True(t, routable("Qwen/Qwen3-8B", registered))
	assert.True(t, routable("heuristic", registered))
	assert.False(t, routable("gemini:gemini-1.5-flash", registered))
	assert.False(t, routable("", registered))
	assert.False(t, routable("Qwen/Qwen3-8B", map[string]bool{}))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("Debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel(" error ").String())
	assert.Equal(t, "INFO", parseLevel("loud").String())
}
