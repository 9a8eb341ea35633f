package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/wordbook/internal/core/parser"
	"github.com/markdave123-py/wordbook/internal/models"
)

var (
	// ErrBucketFailed wraps the last error of a bucket that used up its attempts.
	ErrBucketFailed = errors.New("bucket failed")
	errEmptySource  = errors.New("bucket source is empty")
)

// ProcessBucket runs a bucket until it succeeds or runs out of attempts.
// Every attempt starts from the checkpoints, so finished chunks are never
// sent to the normalizer twice.
func (i *BucketIngestor) ProcessBucket(ctx context.Context, b models.Bucket) models.BucketRun {
	log := i.log.With(slog.String("bucket", b.Name))
	run := models.BucketRun{
		ID:        uuid.NewString(),
		Bucket:    b.Name,
		Status:    models.BucketProcessing,
		StartedAt: time.Now().UTC(),
	}

	for attempt := 1; attempt <= i.cfg.BucketAttempts; attempt++ {
		run.Attempts = attempt
		err := i.processOnce(ctx, b, &run, log)
		if err == nil {
			run.Status = models.BucketDone
			run.Error = ""
			break
		}
		run.Error = err.Error()

		if errors.Is(err, ErrSourceUnreadable) || errors.Is(err, errEmptySource) {
			log.Warn("bucket skipped", slog.Any("error", err))
			run.Status = models.BucketSkipped
			break
		}
		if ctx.Err() != nil || attempt == i.cfg.BucketAttempts {
			log.Error("bucket failed", slog.Int("attempts", attempt), slog.Any("error", err))
			run.Status = models.BucketFailed
			run.Error = fmt.Errorf("%w: %w", ErrBucketFailed, err).Error()
			break
		}

		log.Warn("bucket attempt failed, retrying",
			slog.Int("attempt", attempt), slog.Duration("delay", i.cfg.BucketRetryDelay), slog.Any("error", err))
		if err := i.sleep(ctx, i.cfg.BucketRetryDelay); err != nil {
			run.Status = models.BucketFailed
			run.Error = fmt.Errorf("%w: %w", ErrBucketFailed, err).Error()
			break
		}
	}

	run.FinishedAt = time.Now().UTC()
	if i.runs != nil {
		if err := i.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			log.Warn("could not record bucket run", slog.Any("error", err))
		}
	}
	return run
}

// processOnce loads completed chunks, normalizes the pending ones in index
// order and merges every chunk's records strictly by index.
func (i *BucketIngestor) processOnce(ctx context.Context, b models.Bucket, run *models.BucketRun, log *slog.Logger) error {
	chunks, err := SplitFile(b.SourcePath, i.cfg.ChunkBytes)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", errEmptySource, b.SourcePath)
	}

	cp := NewCheckpoints(b.OutputDir, log)
	outputs := make([]string, len(chunks))
	done := cp.Load(len(chunks))
	for idx, text := range done {
		outputs[idx] = text
	}
	run.Chunks = len(chunks)
	run.Recovered = len(done)
	log.Info("bucket loaded", slog.Int("chunks", len(chunks)), slog.Int("recovered", len(done)))

	for _, c := range chunks {
		if _, ok := done[c.Index]; ok {
			continue
		}
		c.Bucket = b.Name
		out, err := i.normalizer.Normalize(ctx, c)
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", c.Index+1, len(chunks), err)
		}
		if err := cp.Save(c.Index, out); err != nil {
			return err
		}
		outputs[c.Index] = out
		log.Info("chunk done", slog.Int("chunk", c.Index+1), slog.Int("of", len(chunks)))
	}

	var records []models.Record
	for _, out := range outputs {
		records = append(records, i.parser.Parse(out)...)
	}
	if i.cfg.Dedupe {
		var removed int
		records, removed = parser.Dedupe(records)
		log.Info("duplicates removed", slog.Int("removed", removed))
	}
	run.Records = len(records)

	artifact := parser.FormatRecords(records)
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	artifactPath := filepath.Join(b.OutputDir, b.Name+".txt")
	if err := os.WriteFile(artifactPath, []byte(artifact), 0o644); err != nil {
		return fmt.Errorf("write merged artifact: %w", err)
	}

	if err := i.sink.ReplaceBucket(ctx, b.Name, records); err != nil {
		return fmt.Errorf("ingest bucket: %w", err)
	}
	log.Info("bucket ingested", slog.Int("records", len(records)), slog.String("artifact", artifactPath))

	i.publish(ctx, b, artifact, run, log)
	return nil
}

// publish uploads the merged artifact when object storage is configured.
// An upload failure is logged and does not fail the bucket.
func (i *BucketIngestor) publish(ctx context.Context, b models.Bucket, artifact string, run *models.BucketRun, log *slog.Logger) {
	if i.obj == nil || i.cfg.ArtifactBucket == "" {
		return
	}
	key := ArtifactKey(i.cfg.ArtifactPrefix, b.Name)
	url, err := i.obj.UploadFile(ctx, i.cfg.ArtifactBucket, key, []byte(artifact), "text/plain; charset=utf-8")
	if err != nil {
		log.Warn("artifact upload failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	run.ArtifactURL = url
}

// ArtifactKey is the object key of a bucket's merged artifact.
func ArtifactKey(prefix, bucket string) string {
	return path.Join(prefix, bucket, bucket+".txt")
}

// DiscoverBuckets lists the buckets under textDir, one sub-directory each,
// holding <name>/<name>.txt. Missing or empty blobs are skipped with a warning.
// Checkpoints and merged artifacts go to outputDir/<name>.
func DiscoverBuckets(textDir, outputDir string, log *slog.Logger) ([]models.Bucket, error) {
	if log == nil {
		log = slog.Default()
	}
	entries, err := os.ReadDir(textDir)
	if err != nil {
		return nil, fmt.Errorf("read text dir: %w", err)
	}

	var out []models.Bucket
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		src := filepath.Join(textDir, name, name+".txt")
		info, err := os.Stat(src)
		switch {
		case err != nil:
			log.Warn("bucket has no text blob, skipped", slog.String("bucket", name), slog.String("path", src))
			continue
		case info.Size() == 0:
			log.Warn("bucket text blob is empty, skipped", slog.String("bucket", name), slog.String("path", src))
			continue
		}
		out = append(out, models.Bucket{
			Name:       name,
			SourcePath: src,
			OutputDir:  filepath.Join(outputDir, name),
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}
