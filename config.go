package zencourt

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds configuration for every orchestration component. Each
// section maps onto one package; fields carry env tags so LoadConfig can
// fill them from the process environment.
type Config struct {
	// LogLevel is the minimum slog level ("debug", "info", "warn", "error").
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	Dispatch   DispatchConfig   `envPrefix:"PROVIDER_"`
	Webhook    WebhookConfig    `envPrefix:"WEBHOOK_"`
	Inbound    InboundConfig    `envPrefix:"INBOUND_WEBHOOK_"`
	Generation GenerationConfig `envPrefix:"GENERATION_"`
	Render     RenderConfig     `envPrefix:"RENDER_"`
	Storage    StorageConfig    `envPrefix:"STORAGE_"`
	Store      StoreConfig      `envPrefix:"STORE_"`
	HTTP       HTTPConfig       `envPrefix:"HTTP_"`
	Fal        FalConfig        `envPrefix:"FAL_"`
}

// DispatchConfig tunes the provider facade's retry and circuit breaking.
type DispatchConfig struct {
	// MaxAttempts is the number of calls made to one strategy before the
	// facade moves on to the next eligible strategy.
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"2" validate:"min=1"`

	// FailureThreshold is the number of consecutive failures that opens a
	// provider's circuit.
	FailureThreshold int `env:"FAILURE_THRESHOLD" envDefault:"3" validate:"min=1"`

	// Cooldown is how long an open circuit skips its provider.
	Cooldown time.Duration `env:"COOLDOWN" envDefault:"60s" validate:"gt=0"`

	// AttemptTimeout bounds a single provider call. Zero disables it.
	AttemptTimeout time.Duration `env:"ATTEMPT_TIMEOUT" envDefault:"30s"`

	// RateLimit is the sustained calls per second allowed per provider.
	// Zero disables rate limiting.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"RATE_BURST" envDefault:"1"`
}

// WebhookConfig configures outbound status webhooks.
type WebhookConfig struct {
	Secret     string        `env:"SECRET"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"5" validate:"min=0"`
	Backoff    time.Duration `env:"BACKOFF" envDefault:"1s"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`

	// DLQRetention is how long dead letters are kept before purging.
	DLQRetention     time.Duration `env:"DLQ_RETENTION" envDefault:"168h"`
	DLQPurgeSchedule string        `env:"DLQ_PURGE_SCHEDULE" envDefault:"@daily"`
}

// InboundConfig configures verification of provider callbacks.
type InboundConfig struct {
	Secret    string        `env:"SECRET"`
	Tolerance time.Duration `env:"TOLERANCE" envDefault:"5m" validate:"gt=0"`
}

// GenerationConfig configures the generation orchestrator.
type GenerationConfig struct {
	Concurrency int `env:"CONCURRENCY" envDefault:"3" validate:"min=1"`
}

// RenderConfig configures the render job queue.
type RenderConfig struct {
	// ServiceURL is the base URL of the remote render service.
	ServiceURL   string        `env:"SERVICE_URL"`
	ServiceToken string        `env:"SERVICE_TOKEN"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`

	// Retention is how long terminal render jobs stay queryable.
	Retention time.Duration `env:"RETENTION" envDefault:"1h"`

	// SweepSchedule is the cron expression for the retention sweep.
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 10m"`
}

// StorageConfig configures the S3-compatible object store.
type StorageConfig struct {
	Bucket          string        `env:"BUCKET"`
	Region          string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string        `env:"ENDPOINT"`
	AccessKeyID     string        `env:"ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"SECRET_ACCESS_KEY"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL"`
	UsePathStyle    bool          `env:"USE_PATH_STYLE" envDefault:"false"`
	DownloadRetries int           `env:"DOWNLOAD_RETRIES" envDefault:"3" validate:"min=1"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"60s"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string `env:"DRIVER" envDefault:"memory" validate:"oneof=memory postgres redis"`
	PostgresURL string `env:"POSTGRES_URL"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// FalConfig configures the built-in queue-style generation provider.
type FalConfig struct {
	APIKey      string        `env:"API_KEY"`
	BaseURL     string        `env:"BASE_URL" envDefault:"https://queue.fal.run"`
	WebhookURL  string        `env:"WEBHOOK_URL"`
	Models      []string      `env:"MODELS" envSeparator:","`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Dispatch: DispatchConfig{
			MaxAttempts:      2,
			FailureThreshold: 3,
			Cooldown:         60 * time.Second,
			AttemptTimeout:   30 * time.Second,
			RateBurst:        1,
		},
		Webhook: WebhookConfig{
			MaxRetries:       5,
			Backoff:          1 * time.Second,
			Timeout:          10 * time.Second,
			DLQRetention:     168 * time.Hour,
			DLQPurgeSchedule: "@daily",
		},
		Inbound: InboundConfig{
			Tolerance: 5 * time.Minute,
		},
		Generation: GenerationConfig{
			Concurrency: 3,
		},
		Render: RenderConfig{
			PollInterval:  2 * time.Second,
			Retention:     time.Hour,
			SweepSchedule: "@every 10m",
		},
		Storage: StorageConfig{
			Region:          "us-east-1",
			DownloadRetries: 3,
			DownloadTimeout: 60 * time.Second,
		},
		Store: StoreConfig{
			Driver:    "memory",
			RedisAddr: "localhost:6379",
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Fal: FalConfig{
			BaseURL:     "https://queue.fal.run",
			HTTPTimeout: 30 * time.Second,
		},
	}
}

// LoadConfig reads optional .env files, then the process environment, and
// validates the result. Missing .env files are not an error.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("zencourt: load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("zencourt: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var configValidator = validator.New()

// Validate checks field constraints declared on the config structs.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("zencourt: invalid config: %w", err)
	}
	return nil
}
