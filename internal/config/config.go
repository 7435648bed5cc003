package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"careerlens-blobs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string  `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	Temperature  float32 `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`

	ChunkSize  int `envconfig:"CHUNK_SIZE" default:"1000"`
	MapWorkers int `envconfig:"MAP_WORKERS" default:"4"`

	// APITokens maps bearer tokens to owner ids, e.g.
	// CAREERLENS_API_TOKENS="token1:alice,token2:bob".
	APITokens map[string]string `envconfig:"API_TOKENS"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Orphan sweeper. SweepInterval of zero disables the background worker.
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"6h"`
	SweepGrace    time.Duration `envconfig:"SWEEP_GRACE" default:"1h"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CAREERLENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
