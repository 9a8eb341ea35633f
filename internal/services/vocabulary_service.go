package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/core/ingestion_engine"
	"github.com/markdave123-py/wordbook/internal/models"
)

const MaxSample = 500

var ErrArtifactUnavailable = errors.New("artifact storage is not configured")

// BucketSummary is what the API reports per bucket.
type BucketSummary struct {
	Name    string            `json:"name"`
	Records int               `json:"records"`
	LastRun *models.BucketRun `json:"last_run,omitempty"`
}

// VocabularyService reads back what the pipeline ingested.
type VocabularyService struct {
	db      core.DbClient
	storage core.ObjectClient
	bucket  string
	prefix  string
}

// NewVocabularyService builds the read side. storage may be nil.
func NewVocabularyService(db core.DbClient, storage core.ObjectClient, bucket, prefix string) *VocabularyService {
	return &VocabularyService{db: db, storage: storage, bucket: bucket, prefix: prefix}
}

// Buckets lists every ingested bucket with its record count and latest run.
// Buckets that only have failed or skipped runs are listed too.
func (s *VocabularyService) Buckets(ctx context.Context) ([]BucketSummary, error) {
	names, err := s.db.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	runs, err := s.db.LatestRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest runs: %w", err)
	}

	byBucket := make(map[string]models.BucketRun, len(runs))
	for _, r := range runs {
		byBucket[r.Bucket] = r
	}

	out := make([]BucketSummary, 0, len(names)+len(runs))
	for _, name := range names {
		n, err := s.db.CountRecords(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		sum := BucketSummary{Name: name, Records: n}
		if r, ok := byBucket[name]; ok {
			sum.LastRun = &r
			delete(byBucket, name)
		}
		out = append(out, sum)
	}
	for _, r := range runs {
		if _, ok := byBucket[r.Bucket]; !ok {
			continue
		}
		run := r
		out = append(out, BucketSummary{Name: r.Bucket, LastRun: &run})
	}
	return out, nil
}

// Records returns a random sample of at most sample records, capped at
// MaxSample. A sample of zero returns the whole bucket.
func (s *VocabularyService) Records(ctx context.Context, bucket string, sample int) ([]models.Record, error) {
	if sample > MaxSample {
		sample = MaxSample
	}
	records, err := s.db.SampleRecords(ctx, bucket, sample)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// Artifact fetches the published merged artifact of a bucket.
func (s *VocabularyService) Artifact(ctx context.Context, bucket string) ([]byte, error) {
	if s.storage == nil || s.bucket == "" {
		return nil, ErrArtifactUnavailable
	}
	return s.storage.GetFile(ctx, s.bucket, ingestion_engine.ArtifactKey(s.prefix, bucket))
}
