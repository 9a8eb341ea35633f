package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/markdave123-py/wordbook/internal/config"
	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/core/ingestion_engine"
	"github.com/markdave123-py/wordbook/internal/models"
)

const (
	StageFormat    = "format"
	StageNormalize = "normalize"
	StageAll       = "all"
)

// Report is what a pipeline run did.
type Report struct {
	Formatted []ingestion_engine.FormatStats
	Runs      []models.BucketRun
}

// Failed counts buckets that ended in the failed state.
func (r Report) Failed() int {
	n := 0
	for _, run := range r.Runs {
		if run.Status == models.BucketFailed {
			n++
		}
	}
	return n
}

// RunPipeline runs the format stage, the normalize stage or both.
func (a *App) RunPipeline(ctx context.Context, stage string) (Report, error) {
	var rep Report

	switch stage {
	case StageFormat, StageNormalize, StageAll:
	default:
		return rep, fmt.Errorf("unknown stage %q", stage)
	}

	if stage == StageFormat || stage == StageAll {
		stats, err := a.Format(ctx, ingestion_engine.NewDocconvRecognizer(a.Log))
		if err != nil {
			return rep, fmt.Errorf("format: %w", err)
		}
		rep.Formatted = stats
	}

	if stage == StageNormalize || stage == StageAll {
		backends, err := NewBackends(ctx, a.Cfg.LLM, a.Log)
		if err != nil {
			return rep, fmt.Errorf("llm backends: %w", err)
		}
		defer backends.Close()

		runs, err := a.Normalize(ctx, backends.NewNormalizer(ctx, a.Cfg.LLM, a.Log))
		if err != nil {
			return rep, fmt.Errorf("normalize: %w", err)
		}
		rep.Runs = runs
	}
	return rep, nil
}

// Format rebuilds the text blob of every selected bucket from its pages.
func (a *App) Format(ctx context.Context, recognizer core.PageRecognizer) ([]ingestion_engine.FormatStats, error) {
	f := ingestion_engine.NewPageFormatter(a.Cfg.Paths.PagesDir, a.Cfg.Paths.TextDir, recognizer, a.Log)

	available, err := f.Buckets()
	if err != nil {
		return nil, err
	}
	selected := config.SelectBuckets(a.Cfg.Pipeline.Buckets, available)
	if len(selected) == 0 {
		a.Log.Warn("no page buckets match the selection", slog.String("buckets", a.Cfg.Pipeline.Buckets))
		return nil, nil
	}
	return f.Format(ctx, selected)
}

// Normalize chunks, normalizes and ingests every selected bucket.
func (a *App) Normalize(ctx context.Context, normalizer core.ChunkNormalizer) ([]models.BucketRun, error) {
	all, err := ingestion_engine.DiscoverBuckets(a.Cfg.Paths.TextDir, a.Cfg.Paths.OutputDir, a.Log)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(all))
	byName := make(map[string]models.Bucket, len(all))
	for i, b := range all {
		names[i] = b.Name
		byName[b.Name] = b
	}

	selected := config.SelectBuckets(a.Cfg.Pipeline.Buckets, names)
	if len(selected) == 0 {
		a.Log.Warn("no text buckets match the selection", slog.String("buckets", a.Cfg.Pipeline.Buckets))
		return nil, nil
	}
	buckets := make([]models.Bucket, len(selected))
	for i, name := range selected {
		buckets[i] = byName[name]
	}

	ing := ingestion_engine.NewBucketIngestor(normalizer, a.DBClient, a.DBClient, a.ObjectClient,
		&ingestion_engine.IngestConfig{
			ChunkBytes:       a.Cfg.Pipeline.ChunkBytes,
			Workers:          a.Cfg.Pipeline.Workers,
			BucketAttempts:   a.Cfg.Pipeline.BucketAttempts,
			BucketRetryDelay: a.Cfg.Pipeline.BucketRetryDelay,
			Dedupe:           a.Cfg.Pipeline.Dedupe,
			ArtifactBucket:   a.Cfg.Storage.BucketName,
			ArtifactPrefix:   a.Cfg.Storage.Prefix,
		}, a.Log)
	return ing.Run(ctx, buckets), nil
}
