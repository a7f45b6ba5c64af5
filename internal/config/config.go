package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// Empty RABBITMQ_URL runs the API in sync-inline mode: events are
	// delivered within the request instead of being queued.
	RabbitMQURL string `env:"RABBITMQ_URL"`

	APIPort           int    `env:"API_PORT,default=8080"`
	WorkerPort        int    `env:"WORKER_PORT,default=8081"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=8"`

	// Email gateway. Resend is preferred, SES is the fallback; with neither
	// configured the service logs email bodies instead of sending them.
	ResendAPIKey         string `env:"RESEND_API_KEY"`
	FromEmail            string `env:"FROM_EMAIL,default=noreply@practocms.com"`
	AWSRegion            string `env:"AWS_REGION,default=us-east-1"`
	AWSAccessKeyID       string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	SESFromEmail         string `env:"SES_FROM_EMAIL"`
	SESFromName          string `env:"SES_FROM_NAME,default=Practo CMS"`
	EmailRateLimitPerSec int    `env:"EMAIL_RATE_LIMIT_PER_SEC,default=50"`

	JobMaxAttempts       int `env:"JOB_MAX_ATTEMPTS,default=3"`
	JobBackoffBaseMillis int `env:"JOB_BACKOFF_BASE_MILLIS,default=2000"`
	JobBackoffFactor     int `env:"JOB_BACKOFF_FACTOR,default=2"`
	StallIntervalSeconds int `env:"STALL_INTERVAL_SECONDS,default=30"`
	MaxStalledCount      int `env:"MAX_STALLED_COUNT,default=1"`
	KeepCompletedJobs    int `env:"KEEP_COMPLETED_JOBS,default=100"`
	KeepFailedJobs       int `env:"KEEP_FAILED_JOBS,default=500"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
