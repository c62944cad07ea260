// Package config reads service settings from the environment, optionally seeded
// from a local .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	FrontendURL string

	StripeSecretKey     string
	StripeWebhookSecret string

	DatabaseURL    string
	RedisURL       string
	IdempotencyTTL time.Duration

	OrderEventsQueueURL string
	AWSRegion           string

	MetricsToken   string
	AdminJWTSecret string

	IntentRateLimitPerMin int
}

var ErrMissingStripeKey = errors.New("STRIPE_SECRET_KEY is required")

// Load reads envFiles (".env" when none given) and then the process environment.
// Variables already set in the environment win over file values. A missing file is
// not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:                getenv("PORT", "3001"),
		FrontendURL:         strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:3000"), "/"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		OrderEventsQueueURL: os.Getenv("ORDER_EVENTS_QUEUE_URL"),
		AWSRegion:           getenv("AWS_REGION", "us-east-1"),
		MetricsToken:        os.Getenv("METRICS_TOKEN"),
		AdminJWTSecret:      os.Getenv("ADMIN_JWT_SECRET"),
	}

	if cfg.StripeSecretKey == "" {
		return Config{}, ErrMissingStripeKey
	}

	ttl, err := time.ParseDuration(getenv("IDEMPOTENCY_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL: invalid duration %q", os.Getenv("IDEMPOTENCY_TTL"))
	}
	cfg.IdempotencyTTL = ttl

	limit, err := strconv.Atoi(getenv("INTENT_RATE_LIMIT_PER_MIN", "30"))
	if err != nil || limit < 0 {
		return Config{}, fmt.Errorf("INTENT_RATE_LIMIT_PER_MIN: invalid value %q", os.Getenv("INTENT_RATE_LIMIT_PER_MIN"))
	}
	cfg.IntentRateLimitPerMin = limit

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT: invalid value %q", cfg.Port)
	}

	return cfg, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
