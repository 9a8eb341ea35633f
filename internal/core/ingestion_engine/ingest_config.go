package ingestion_engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/core/parser"
)

// IngestConfig tunes the bucket pipeline.
//
// ChunkBytes:       UTF-8 byte budget of one normalization request.
// Workers:          buckets processed at the same time (at most 3).
// BucketAttempts:   full passes over a bucket before it is marked failed.
// BucketRetryDelay: pause between two passes.
// Dedupe:           drop repeated (headword, translation) pairs before ingestion.
// ArtifactBucket:   object storage bucket for merged artifacts; empty disables upload.
// ArtifactPrefix:   key prefix inside ArtifactBucket.
type IngestConfig struct {
	ChunkBytes       int
	Workers          int
	BucketAttempts   int
	BucketRetryDelay time.Duration
	Dedupe           bool
	ArtifactBucket   string
	ArtifactPrefix   string
}

// BucketIngestor orchestrates normalization of whole buckets:
//
// normalizer: turns one chunk into record lines.
// parser:     reads record lines back into models.Record.
// sink:       receives the merged record list of a bucket.
// runs:       optional log of bucket outcomes.
// obj:        optional object storage for merged artifacts.
type BucketIngestor struct {
	normalizer core.ChunkNormalizer
	parser     *parser.Parser
	sink       core.RecordSink
	runs       core.RunRecorder
	obj        core.ObjectClient
	cfg        *IngestConfig
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}
