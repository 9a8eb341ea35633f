package config

import (
	"errors"
	"fmt"
	"strings"
)

// MaxWorkers caps bucket parallelism; the remote APIs rate-limit hard above it.
const MaxWorkers = 3

func (c *Config) Validate() error {
	var errs []error

	if c.Pipeline.ChunkBytes <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk_bytes must be positive, got %d", c.Pipeline.ChunkBytes))
	}
	if c.Pipeline.Workers <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers))
	}
	if c.Pipeline.Workers > MaxWorkers {
		c.Pipeline.Workers = MaxWorkers
	}
	if c.Pipeline.BucketAttempts <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.bucket_attempts must be positive, got %d", c.Pipeline.BucketAttempts))
	}
	if c.Pipeline.BucketRetryDelay < 0 {
		errs = append(errs, errors.New("pipeline.bucket_retry_delay must not be negative"))
	}

	if c.LLM.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_retries must be positive, got %d", c.LLM.MaxRetries))
	}
	if c.LLM.RetryDelay < 0 || c.LLM.RateDelay < 0 {
		errs = append(errs, errors.New("llm delays must not be negative"))
	}
	if c.LLM.ProbeTimeout <= 0 || c.LLM.CallTimeout <= 0 {
		errs = append(errs, errors.New("llm timeouts must be positive"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if strings.TrimSpace(c.LLM.PreferredModel) == "" {
		errs = append(errs, errors.New("llm.preferred_model is required"))
	}

	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or pgx, got %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}

	if c.Storage.BucketName != "" && (c.Storage.AwsAccessKey == "" || c.Storage.AwsSecretKey == "") {
		errs = append(errs, errors.New("storage.bucket_name is set but AWS credentials are missing"))
	}

	return errors.Join(errs...)
}
