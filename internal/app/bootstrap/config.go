package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the payments service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret string

	StripeSecretKey string

	Currency           string
	PlatformFeeRate    float64
	MaxHoldCents       int64
	AutoReleaseAfter   time.Duration
	DefaultBidTTL      time.Duration
	IdempotencyTTL     time.Duration
	RateLimitPerMinute int

	MaxDBConns         int32
	SweepBatchSize     int
	SweepInterval      time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Payments struct {
		Currency        string  `yaml:"currency"`
		PlatformFeeRate float64 `yaml:"platform_fee_rate"`
		MaxHoldCents    int64   `yaml:"max_hold_cents"`
	} `yaml:"payments"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "payments-service",
		HTTPPort:           8080,
		GRPCPort:           9090,
		Currency:           "usd",
		PlatformFeeRate:    0.03,
		MaxHoldCents:       100_000_000,
		AutoReleaseAfter:   72 * time.Hour,
		DefaultBidTTL:      48 * time.Hour,
		IdempotencyTTL:     24 * time.Hour,
		RateLimitPerMinute: 120,
		MaxDBConns:         20,
		SweepBatchSize:     100,
		SweepInterval:      5 * time.Minute,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Payments.Currency != "" {
			cfg.Currency = f.Payments.Currency
		}
		if f.Payments.PlatformFeeRate > 0 {
			cfg.PlatformFeeRate = f.Payments.PlatformFeeRate
		}
		if f.Payments.MaxHoldCents > 0 {
			cfg.MaxHoldCents = f.Payments.MaxHoldCents
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.StripeSecretKey = envOrDefault("STRIPE_SECRET_KEY", cfg.StripeSecretKey)
	cfg.Currency = envOrDefault("PAYMENT_CURRENCY", cfg.Currency)
	cfg.PlatformFeeRate = envFloat("PLATFORM_FEE_RATE", cfg.PlatformFeeRate)
	cfg.MaxHoldCents = int64(envInt("MAX_HOLD_CENTS", int(cfg.MaxHoldCents)))
	cfg.RateLimitPerMinute = envInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.SweepBatchSize = envInt("SWEEP_BATCH_SIZE", cfg.SweepBatchSize)

	cfg.AutoReleaseAfter = time.Duration(envInt("AUTO_RELEASE_HOURS", int(cfg.AutoReleaseAfter.Hours()))) * time.Hour
	cfg.DefaultBidTTL = time.Duration(envInt("DEFAULT_BID_TTL_HOURS", int(cfg.DefaultBidTTL.Hours()))) * time.Hour
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
