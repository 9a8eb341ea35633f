package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/wordbook/internal/config"
	"github.com/markdave123-py/wordbook/internal/models"
)

func newTestClient(t *testing.T) *DatabaseClient {
	t.Helper()
	c, err := NewDatabaseClient(context.Background(), config.DatabaseConfig{
		Driver: DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "words.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleRecords() []models.Record {
	return []models.Record{
		{Headword: "abandon", Translation: "放弃", PartOfSpeech: models.Optional("vt."), EntryType: models.EntryWord},
		{Headword: "ability", Translation: "能力", PartOfSpeech: models.Optional("n."), EntryType: models.EntryWord},
		{Headword: "be able to", Translation: "能够", EntryType: models.EntryPhrase, AnchorHint: models.Optional("able")},
	}
}

func TestNewDatabaseClient_BadDriver(t *testing.T) {
	_, err := NewDatabaseClient(context.Background(), config.DatabaseConfig{Driver: "mysql", URL: "x"})
	assert.Error(t, err)

	_, err = NewDatabaseClient(context.Background(), config.DatabaseConfig{Driver: DriverSQLite})
	assert.Error(t, err)
}

func TestBootstrap_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.db")
	cfg := config.DatabaseConfig{Driver: DriverSQLite, URL: path}

	first, err := NewDatabaseClient(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewDatabaseClient(context.Background(), cfg)
	require.NoError(t, err)
	defer second.Close()

	var n int
	require.NoError(t, second.db.QueryRow(`SELECT COUNT(*) FROM wordbook_meta`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestReplaceBucket_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceBucket(ctx, "a", sampleRecords()))

	n, err := c.CountRecords(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := c.SampleRecords(ctx, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestReplaceBucket_Replaces(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceBucket(ctx, "a", sampleRecords()))
	require.NoError(t, c.ReplaceBucket(ctx, "a", sampleRecords()[:1]))

	got, err := c.SampleRecords(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "abandon", got[0].Headword)
}

func TestReplaceBucket_Empty(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.ReplaceBucket(context.Background(), "q", nil))

	n, err := c.CountRecords(context.Background(), "q")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplaceBucket_InvalidName(t *testing.T) {
	c := newTestClient(t)
	err := c.ReplaceBucket(context.Background(), `a"; DROP TABLE bucket_runs; --`, nil)
	assert.ErrorIs(t, err, ErrInvalidBucket)
}

func TestSampleRecords(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.ReplaceBucket(ctx, "a", sampleRecords()))

	got, err := c.SampleRecords(ctx, "a", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = c.SampleRecords(ctx, "a", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, sampleRecords(), got)

	_, err = c.SampleRecords(ctx, "b", 1)
	assert.ErrorIs(t, err, ErrBucketNotFound)
}

func TestListBuckets(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	got, err := c.ListBuckets(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.ReplaceBucket(ctx, "c", nil))
	require.NoError(t, c.ReplaceBucket(ctx, "a", sampleRecords()))
	require.NoError(t, c.ReplaceBucket(ctx, "a", sampleRecords()))

	got, err = c.ListBuckets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestRuns_LatestPerBucket(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	runs := []models.BucketRun{
		{ID: "1", Bucket: "a", Status: models.BucketFailed, Attempts: 3, Error: "bucket failed: boom", StartedAt: base, FinishedAt: base.Add(time.Minute)},
		{ID: "2", Bucket: "a", Status: models.BucketDone, Chunks: 10, Recovered: 2, Records: 40, Attempts: 1, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(2 * time.Hour)},
		{ID: "3", Bucket: "b", Status: models.BucketSkipped, Attempts: 1, StartedAt: base, FinishedAt: base},
	}
	for _, r := range runs {
		require.NoError(t, c.SaveRun(ctx, r))
	}

	got, err := c.LatestRuns(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, runs[1], got[0])
	assert.Equal(t, runs[2], got[1])
}
