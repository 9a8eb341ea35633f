package models

import (
	"strconv"
	"time"
)

// EntryType classifies a headword as a single word, a phrase or a full sentence.
type EntryType int

const (
	EntryPhrase   EntryType = -1
	EntryWord     EntryType = 0
	EntrySentence EntryType = 1
)

func (t EntryType) String() string {
	switch t {
	case EntryPhrase:
		return "phrase"
	case EntryWord:
		return "word"
	case EntrySentence:
		return "sentence"
	default:
		return "entry(" + strconv.Itoa(int(t)) + ")"
	}
}

// Record is one normalized dictionary entry.
// A nil PartOfSpeech or AnchorHint is the NULL value of the merged artifact.
type Record struct {
	Headword     string    `db:"headword" json:"headword"`
	Translation  string    `db:"translation" json:"translation"`
	PartOfSpeech *string   `db:"part_of_speech" json:"part_of_speech"`
	EntryType    EntryType `db:"entry_type" json:"entry_type"`
	AnchorHint   *string   `db:"anchor_hint" json:"anchor_hint"`
}

// Chunk is a byte-bounded, line-aligned slice of a bucket's text.
//
// Index: zero-based position inside the bucket blob.
// Text:  raw lines, terminators included.
type Chunk struct {
	Index  int
	Bucket string
	Text   string
}

// Bucket is a named partition of the vocabulary, conventionally one initial letter.
type Bucket struct {
	Name       string `json:"name"`
	SourcePath string `json:"source_path"` // reconstructed text blob
	OutputDir  string `json:"output_dir"`  // checkpoints and merged artifact
}

type BucketStatus string

const (
	BucketPending    BucketStatus = "pending"
	BucketProcessing BucketStatus = "processing"
	BucketDone       BucketStatus = "done"
	BucketFailed     BucketStatus = "failed"
	BucketSkipped    BucketStatus = "skipped"
)

// BucketRun reports what one pipeline run did with one bucket.
type BucketRun struct {
	ID          string       `db:"id" json:"id"`
	Bucket      string       `db:"bucket" json:"bucket"`
	Status      BucketStatus `db:"status" json:"status"`
	Chunks      int          `db:"chunks" json:"chunks"`
	Recovered   int          `db:"recovered" json:"recovered"`
	Records     int          `db:"records" json:"records"`
	Attempts    int          `db:"attempts" json:"attempts"`
	Error       string       `db:"error" json:"error,omitempty"`
	ArtifactURL string       `db:"artifact_url" json:"artifact_url,omitempty"`
	StartedAt   time.Time    `db:"started_at" json:"started_at"`
	FinishedAt  time.Time    `db:"finished_at" json:"finished_at"`
}

// Optional returns nil for the empty string and a pointer to s otherwise.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
