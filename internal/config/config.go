package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	// Server
	ServerPort        int    `envconfig:"SERVER_PORT" default:"8000"`
	MaxUploadSizeMB   int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	CORSAllowedOrigin string `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`
	QueryLogPath      string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Gemini
	GeminiAPIKey          string  `envconfig:"GEMINI_API_KEY"`
	EmbeddingModel        string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	CompletionModel       string  `envconfig:"COMPLETION_MODEL" default:"gemini-2.0-flash"`
	CompletionTemperature float32 `envconfig:"COMPLETION_TEMPERATURE" default:"0.2"`

	// Pipeline
	ChunkWordLimit   int `envconfig:"CHUNK_WORD_LIMIT" default:"500"`
	RetrievalTopK    int `envconfig:"RETRIEVAL_TOP_K" default:"3"`
	EmbedConcurrency int `envconfig:"EMBED_CONCURRENCY" default:"8"`

	// Resilience
	ExternalCallTimeoutSeconds int     `envconfig:"EXTERNAL_CALL_TIMEOUT_SECONDS" default:"60"`
	RetryMaxAttempts           int     `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialIntervalMs     int     `envconfig:"RETRY_INITIAL_INTERVAL_MS" default:"500"`
	RetryMaxIntervalMs         int     `envconfig:"RETRY_MAX_INTERVAL_MS" default:"5000"`
	RateLimitRPS               float64 `envconfig:"RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst             int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
	BreakerFailureThreshold    uint32  `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"5"`
	BreakerOpenSeconds         int     `envconfig:"BREAKER_OPEN_SECONDS" default:"30"`

	// Events; empty disables publishing.
	NSQDHost string `envconfig:"NSQD_HOST" default:""`
}

func Load() (*Config, error) {
	// Env vars set in the shell win; .env files are optional.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EMBEDDING_MODEL", ErrMissingRequired)
	}
	if c.CompletionModel == "" {
		return fmt.Errorf("%w: COMPLETION_MODEL", ErrMissingRequired)
	}

	positive := []struct {
		name  string
		value int64
	}{
		{"SERVER_PORT", int64(c.ServerPort)},
		{"MAX_UPLOAD_SIZE_MB", c.MaxUploadSizeMB},
		{"CHUNK_WORD_LIMIT", int64(c.ChunkWordLimit)},
		{"RETRIEVAL_TOP_K", int64(c.RetrievalTopK)},
		{"EMBED_CONCURRENCY", int64(c.EmbedConcurrency)},
		{"EXTERNAL_CALL_TIMEOUT_SECONDS", int64(c.ExternalCallTimeoutSeconds)},
		{"RETRY_MAX_ATTEMPTS", int64(c.RetryMaxAttempts)},
		{"BREAKER_FAILURE_THRESHOLD", int64(c.BreakerFailureThreshold)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, p.name, p.value)
		}
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must not be negative", ErrInvalidValue)
	}
	if c.CompletionTemperature < 0 || c.CompletionTemperature > 2 {
		return fmt.Errorf("%w: COMPLETION_TEMPERATURE must be within [0, 2]", ErrInvalidValue)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("%w: LOG_FORMAT must be json or text", ErrInvalidValue)
	}
	return nil
}

func (c *Config) ExternalCallTimeout() time.Duration {
	return time.Duration(c.ExternalCallTimeoutSeconds) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}
