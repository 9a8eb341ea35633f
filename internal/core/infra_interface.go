package core

import (
	"context"

	"github.com/markdave123-py/wordbook/internal/models"
)

// RecordSink receives the final record list of a bucket.
// ReplaceBucket discards whatever the bucket held before.
type RecordSink interface {
	ReplaceBucket(ctx context.Context, bucket string, records []models.Record) error
}

// RunRecorder keeps the outcome of every bucket run.
type RunRecorder interface {
	SaveRun(ctx context.Context, run models.BucketRun) error
}

// DbClient is the relational store behind the sink and the read API.
// It hides whether sqlite or Postgres is underneath.
type DbClient interface {
	RecordSink
	RunRecorder

	LatestRuns(ctx context.Context) ([]models.BucketRun, error)

	ListBuckets(ctx context.Context) ([]string, error)
	CountRecords(ctx context.Context, bucket string) (int, error)
	SampleRecords(ctx context.Context, bucket string, limit int) ([]models.Record, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
