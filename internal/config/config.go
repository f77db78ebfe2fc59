package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"aipipeline"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"aipipeline"`

	// Identifier source. CallTimeoutSeconds bounds every outbound
	// pipeline call (fetch, enrichment, persistence), not just fetch.
	UUIDEndpoint       string `envconfig:"UUID_ENDPOINT" default:"https://httpbin.org/uuid"`
	CallTimeoutSeconds int    `envconfig:"CALL_TIMEOUT_SECONDS" default:"10"`
	BatchSize          int    `envconfig:"BATCH_SIZE" default:"3"`

	// Enrichment. An empty key leaves the analyzer in permanent
	// fallback mode, it is not a startup error.
	GeminiAPIKey  string  `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string  `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	EnrichmentRPS float64 `envconfig:"ENRICHMENT_RPS" default:"2"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	EnableAPI          bool   `envconfig:"ENABLE_API" default:"true"`
	EnableNotifyWorker bool   `envconfig:"ENABLE_NOTIFY_WORKER" default:"false"`
	NotifyLogPath      string `envconfig:"NOTIFY_LOG_PATH" default:"data/logs/notifications.log"`
	MigrationPath      string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Server
	ServerPort int `envconfig:"SERVER_PORT" default:"8080"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.UUIDEndpoint == "" {
		return fmt.Errorf("%w: UUID_ENDPOINT", ErrMissingRequired)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: BATCH_SIZE must be positive", ErrMissingRequired)
	}
	return nil
}
