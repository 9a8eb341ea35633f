package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/markdave123-py/wordbook/internal/config"
	"github.com/markdave123-py/wordbook/internal/core"
	"github.com/markdave123-py/wordbook/internal/models"
)

// timestamps are stored as fixed-width UTC text so they sort as strings
// on both drivers.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var _ core.DbClient = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db      *sql.DB
	dialect dialect
	sb      squirrel.StatementBuilderType
}

func NewDatabaseClient(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if d.driver == DriverSQLite {
		// one writer at a time keeps sqlite out of SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{
		db:      db,
		dialect: d,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(d.placeholder),
	}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ReplaceBucket drops and recreates the bucket table and inserts records in
// order, all in one transaction.
func (c *DatabaseClient) ReplaceBucket(ctx context.Context, bucket string, records []models.Record) error {
	table, err := bucketTable(bucket)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, c.dialect.createBucketTable(table)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}

	if len(records) > 0 {
		q, _, err := c.sb.Insert(table).
			Columns("headword", "translation", "part_of_speech", "entry_type", "anchor_hint").
			Values("", "", nil, 0, nil).
			ToSql()
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				r.Headword, r.Translation, r.PartOfSpeech, int(r.EntryType), r.AnchorHint,
			); err != nil {
				return fmt.Errorf("insert %q: %w", r.Headword, err)
			}
		}
	}

	now := time.Now().UTC().Format(timeLayout)
	del, args, err := c.sb.Delete("wordbook_buckets").Where(squirrel.Eq{"name": bucket}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return err
	}
	ins, args, err := c.sb.Insert("wordbook_buckets").
		Columns("name", "records", "updated_at").
		Values(bucket, len(records), now).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
		return err
	}

	return tx.Commit()
}

func (c *DatabaseClient) SaveRun(ctx context.Context, run models.BucketRun) error {
	q, args, err := c.sb.Insert("bucket_runs").
		Columns("id", "bucket", "status", "chunks", "recovered", "records", "attempts",
			"error", "artifact_url", "started_at", "finished_at").
		Values(run.ID, run.Bucket, string(run.Status), run.Chunks, run.Recovered, run.Records, run.Attempts,
			run.Error, run.ArtifactURL, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

// LatestRuns returns the most recent run of every bucket, ordered by bucket.
func (c *DatabaseClient) LatestRuns(ctx context.Context) ([]models.BucketRun, error) {
	q, args, err := c.sb.Select("id", "bucket", "status", "chunks", "recovered", "records", "attempts",
		"error", "artifact_url", "started_at", "finished_at").
		From("bucket_runs r").
		Where(squirrel.Expr("r.started_at = (SELECT MAX(started_at) FROM bucket_runs WHERE bucket = r.bucket)")).
		OrderBy("bucket ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BucketRun
	for rows.Next() {
		var (
			r               models.BucketRun
			status          string
			started, finish string
		)
		if err := rows.Scan(&r.ID, &r.Bucket, &status, &r.Chunks, &r.Recovered, &r.Records, &r.Attempts,
			&r.Error, &r.ArtifactURL, &started, &finish); err != nil {
			return nil, err
		}
		r.Status = models.BucketStatus(status)
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finish); err != nil {
			return nil, fmt.Errorf("run %s finished_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListBuckets(ctx context.Context) ([]string, error) {
	q, args, err := c.sb.Select("name").From("wordbook_buckets").OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountRecords(ctx context.Context, bucket string) (int, error) {
	table, err := c.existingTable(ctx, bucket)
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SampleRecords returns up to limit records picked at random. A limit of
// zero or less returns the whole bucket in ingestion order.
func (c *DatabaseClient) SampleRecords(ctx context.Context, bucket string, limit int) ([]models.Record, error) {
	table, err := c.existingTable(ctx, bucket)
	if err != nil {
		return nil, err
	}

	sel := c.sb.Select("headword", "translation", "part_of_speech", "entry_type", "anchor_hint").From(table)
	if limit > 0 {
		sel = sel.OrderBy("RANDOM()").Limit(uint64(limit))
	} else {
		sel = sel.OrderBy("id ASC")
	}
	q, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r         models.Record
			pos, hint sql.NullString
			entryType int
		)
		if err := rows.Scan(&r.Headword, &r.Translation, &pos, &entryType, &hint); err != nil {
			return nil, err
		}
		r.EntryType = models.EntryType(entryType)
		if pos.Valid {
			r.PartOfSpeech = &pos.String
		}
		if hint.Valid {
			r.AnchorHint = &hint.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// existingTable resolves a bucket that ReplaceBucket has populated.
func (c *DatabaseClient) existingTable(ctx context.Context, bucket string) (string, error) {
	table, err := bucketTable(bucket)
	if err != nil {
		return "", err
	}
	q, args, err := c.sb.Select("1").From("wordbook_buckets").Where(squirrel.Eq{"name": bucket}).ToSql()
	if err != nil {
		return "", err
	}
	var one int
	err = c.db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}
	if err != nil {
		return "", err
	}
	return table, nil
}
