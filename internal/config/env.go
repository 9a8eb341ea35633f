package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// PathsConfig holds the per-stage working directories.
// Every stage namespaces its output by bucket: <dir>/<bucket>/...
type PathsConfig struct {
	PagesDir  string `yaml:"pages_dir"  env:"PAGES_DIR"  env-default:"json"`
	TextDir   string `yaml:"text_dir"   env:"TEXT_DIR"   env-default:"result"`
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"ai"`
}

type PipelineConfig struct {
	Buckets          string        `yaml:"buckets"            env:"BUCKETS"            env-default:"all"`
	ChunkBytes       int           `yaml:"chunk_bytes"        env:"CHUNK_BYTES"        env-default:"2048"`
	Workers          int           `yaml:"workers"            env:"WORKERS"            env-default:"3"`
	BucketAttempts   int           `yaml:"bucket_attempts"    env:"BUCKET_ATTEMPTS"    env-default:"3"`
	BucketRetryDelay time.Duration `yaml:"bucket_retry_delay" env:"BUCKET_RETRY_DELAY" env-default:"15s"`
	Dedupe           bool          `yaml:"dedupe"             env:"DEDUPE"             env-default:"false"`
}

// LLMConfig drives backend selection and the retry budget of the normalizer.
type LLMConfig struct {
	PreferredModel string        `yaml:"preferred_model" env:"PREFERRED_MODEL" env-default:"THUDM/GLM-4-9B-0414"`
	Models         []string      `yaml:"models"          env:"MODELS"          env-separator:","`
	ProbeModels    bool          `yaml:"probe_models"    env:"PROBE_MODELS"    env-default:"true"`
	MaxRetries     int           `yaml:"max_retries"     env:"LLM_MAX_RETRIES" env-default:"5"`
	RetryDelay     time.Duration `yaml:"retry_delay"     env:"LLM_RETRY_DELAY" env-default:"10s"`
	RateDelay      time.Duration `yaml:"rate_delay"      env:"LLM_RATE_DELAY"  env-default:"500ms"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"   env:"LLM_PROBE_TIMEOUT" env-default:"10s"`
	CallTimeout    time.Duration `yaml:"call_timeout"    env:"LLM_CALL_TIMEOUT"  env-default:"60s"`
	MaxTokens      int           `yaml:"max_tokens"      env:"LLM_MAX_TOKENS"    env-default:"2048"`
	Temperature    float64       `yaml:"temperature"     env:"LLM_TEMPERATURE"   env-default:"0.2"`

	SiliconFlowKey string `yaml:"siliconflow_api_key"  env:"SILICONFLOW_API_KEY"`
	SiliconFlowURL string `yaml:"siliconflow_base_url" env:"SILICONFLOW_BASE_URL" env-default:"https://api.siliconflow.cn/v1"`
	GeminiKey      string `yaml:"gemini_api_key"       env:"GEMINI_API_KEY"`
	AnthropicKey   string `yaml:"anthropic_api_key"    env:"ANTHROPIC_API_KEY"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"         env:"DB_DRIVER"         env-default:"sqlite"`
	URL          string `yaml:"url"            env:"DATABASE_URL"      env-default:"words.db"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
}

// StorageConfig enables publication of merged artifacts when BucketName is set.
type StorageConfig struct {
	AwsAccessKey string `yaml:"aws_access_key"  env:"AWS_ACCESS_KEY"`
	AwsSecretKey string `yaml:"aws_secret_key"  env:"AWS_SECRET_KEY"`
	AwsRegion    string `yaml:"aws_region"      env:"AWS_REGION"      env-default:"us-east-2"`
	BucketName   string `yaml:"bucket_name"     env:"BUCKET_NAME"`
	Endpoint     string `yaml:"endpoint"        env:"S3_ENDPOINT"`
	Prefix       string `yaml:"prefix"          env:"ARTIFACT_PREFIX" env-default:"wordbook"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                 env-default:"8080"`
	AllowedOrigins  []string      `yaml:"allowed_origins"  env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"     env-default:"10s"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// LoadConfig loads .env, then the YAML file at path (or CONFIG_PATH) when one
// is given, then the environment. Environment values win over the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}
