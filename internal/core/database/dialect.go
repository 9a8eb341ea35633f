package db

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/squirrel"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var (
	ErrInvalidBucket  = errors.New("invalid bucket name")
	ErrBucketNotFound = errors.New("bucket not found")

	bucketName = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)
)

// dialect holds what differs between the sqlite and Postgres schemas.
type dialect struct {
	driver      string
	placeholder squirrel.PlaceholderFormat
	serialID    string
	metaExists  string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			driver:      driver,
			placeholder: squirrel.Question,
			serialID:    "INTEGER PRIMARY KEY AUTOINCREMENT",
			metaExists:  `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'wordbook_meta')`,
		}, nil
	case DriverPostgres:
		return dialect{
			driver:      driver,
			placeholder: squirrel.Dollar,
			serialID:    "BIGSERIAL PRIMARY KEY",
			metaExists: `SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = 'wordbook_meta'
			)`,
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// bucketTable returns the quoted table name of a bucket.
func bucketTable(bucket string) (string, error) {
	if !bucketName.MatchString(bucket) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBucket, bucket)
	}
	return `"words_` + bucket + `"`, nil
}

func (d dialect) createBucketTable(table string) string {
	return `CREATE TABLE ` + table + ` (
		id             ` + d.serialID + `,
		headword       TEXT NOT NULL,
		translation    TEXT NOT NULL,
		anchor_hint    TEXT,
		usage_count    INTEGER NOT NULL DEFAULT 0,
		entry_type     INTEGER NOT NULL DEFAULT 0,
		part_of_speech TEXT
	)`
}
