package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Environment selects the Cashfree API environment.
type Environment string

const (
	// EnvSandbox targets the Cashfree sandbox API.
	EnvSandbox Environment = "sandbox"
	// EnvProduction targets the live Cashfree API.
	EnvProduction Environment = "production"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	CashfreeAppID         string
	CashfreeSecretKey     string
	CashfreeEnvironment   Environment
	CashfreeWebhookSecret string
	CashfreeBaseURL       string
	ReturnURL             string
	NotifyURL             string

	WebhookTolerance time.Duration
	WebhookReplayTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CashfreeAppID:         strings.TrimSpace(k.String("CASHFREE_APP_ID")),
		CashfreeSecretKey:     strings.TrimSpace(k.String("CASHFREE_SECRET_KEY")),
		CashfreeEnvironment:   Environment(strings.ToLower(strings.TrimSpace(k.String("CASHFREE_ENV")))),
		CashfreeWebhookSecret: strings.TrimSpace(k.String("CASHFREE_WEBHOOK_SECRET")),
		CashfreeBaseURL:       strings.TrimSpace(k.String("CASHFREE_BASE_URL")),
		ReturnURL:             strings.TrimSpace(k.String("CASHFREE_RETURN_URL")),
		NotifyURL:             strings.TrimSpace(k.String("CASHFREE_NOTIFY_URL")),

		WebhookTolerance: parseDuration(k.String("CASHFREE_WEBHOOK_TOLERANCE"), "5m"),
		WebhookReplayTTL: parseDuration(k.String("CASHFREE_WEBHOOK_REPLAY_TTL"), "24h"),
	}

	if cfg.CashfreeEnvironment == "" {
		cfg.CashfreeEnvironment = EnvSandbox
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the Cashfree option surface eagerly, before any client is built.
func (c *Config) Validate() error {
	if c.CashfreeAppID == "" {
		return errors.New("CASHFREE_APP_ID is required")
	}
	if c.CashfreeSecretKey == "" {
		return errors.New("CASHFREE_SECRET_KEY is required")
	}
	if c.CashfreeEnvironment != EnvSandbox && c.CashfreeEnvironment != EnvProduction {
		return fmt.Errorf("invalid CASHFREE_ENV %q: use %q or %q", c.CashfreeEnvironment, EnvSandbox, EnvProduction)
	}
	if c.CashfreeWebhookSecret == "" {
		return errors.New("CASHFREE_WEBHOOK_SECRET is required")
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
