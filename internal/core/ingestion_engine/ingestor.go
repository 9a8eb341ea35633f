package ingestion_engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/core/parser"
	"github.com/markdave123-py/wordbook/internal/models"
)

type Ingestor interface {
	Run(ctx context.Context, buckets []models.Bucket) []models.BucketRun
	ProcessBucket(ctx context.Context, bucket models.Bucket) models.BucketRun
}

// NewBucketIngestor wires the pipeline. runs and obj may be nil.
func NewBucketIngestor(
	normalizer core.ChunkNormalizer,
	sink core.RecordSink,
	runs core.RunRecorder,
	obj core.ObjectClient,
	cfg *IngestConfig,
	log *slog.Logger,
) *BucketIngestor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = DefaultChunkBytes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BucketAttempts <= 0 {
		cfg.BucketAttempts = 1
	}
	return &BucketIngestor{
		normalizer: normalizer,
		parser:     parser.New(log),
		sink:       sink,
		runs:       runs,
		obj:        obj,
		cfg:        cfg,
		log:        log,
		sleep:      sleepCtx,
	}
}

// Run processes buckets on a bounded pool of workers. Each worker owns one
// bucket directory at a time, and a failed bucket never stops its siblings.
// Results are returned in input order.
func (i *BucketIngestor) Run(ctx context.Context, buckets []models.Bucket) []models.BucketRun {
	results := make([]models.BucketRun, len(buckets))

	var g errgroup.Group
	g.SetLimit(i.cfg.Workers)
	for n, b := range buckets {
		g.Go(func() error {
			results[n] = i.ProcessBucket(ctx, b)
			return nil
		})
	}
	_ = g.Wait()

	var done, failed, skipped int
	for _, r := range results {
		switch r.Status {
		case models.BucketDone:
			done++
		case models.BucketFailed:
			failed++
		case models.BucketSkipped:
			skipped++
		}
	}
	i.log.Info("ingestion finished",
		slog.Int("buckets", len(buckets)), slog.Int("done", done),
		slog.Int("failed", failed), slog.Int("skipped", skipped))
	return results
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

var _ Ingestor = (*BucketIngestor)(nil)
