package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

var currencyCodeRegex = regexp.MustCompile(`^[a-z]{3}$`)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr    string
	LogLevel      string
	PublicBaseURL string

	// Database configuration
	DatabaseURL string

	// NATS configuration; empty disables event publishing
	NATSURL string

	// Payment processor configuration
	Stripe StripeConfig

	// GatewayTimeout bounds each payment processor call.
	GatewayTimeout time.Duration
}

// StripeConfig is the processor settings block. The secret key is handed to
// the gateway client at construction and never stored globally.
type StripeConfig struct {
	PublicKey    string
	SecretKey    string
	CurrencyCode string // lower-case ISO 4217
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.PublicBaseURL = strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.NATSURL = os.Getenv("NATS_URL")

	// Stripe configuration
	cfg.Stripe.PublicKey = os.Getenv("STRIPE_PUBLIC_KEY")
	if cfg.Stripe.PublicKey == "" {
		errs = append(errs, fmt.Errorf("STRIPE_PUBLIC_KEY is required"))
	}

	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	if cfg.Stripe.SecretKey == "" {
		errs = append(errs, fmt.Errorf("STRIPE_SECRET_KEY is required"))
	}

	cfg.Stripe.CurrencyCode = strings.ToLower(strings.TrimSpace(os.Getenv("STRIPE_CURRENCY_CODE")))
	if cfg.Stripe.CurrencyCode == "" {
		errs = append(errs, fmt.Errorf("STRIPE_CURRENCY_CODE is required"))
	} else if !currencyCodeRegex.MatchString(cfg.Stripe.CurrencyCode) {
		errs = append(errs, fmt.Errorf("STRIPE_CURRENCY_CODE must be a three-letter ISO code, got %q", cfg.Stripe.CurrencyCode))
	}

	gatewayTimeout, err := parseDuration("GATEWAY_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else if gatewayTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GATEWAY_TIMEOUT must be positive, got %v", gatewayTimeout))
	} else {
		cfg.GatewayTimeout = gatewayTimeout
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.Stripe.PublicKey == "" {
		errs = append(errs, fmt.Errorf("Stripe.PublicKey is required"))
	}

	if c.Stripe.SecretKey == "" {
		errs = append(errs, fmt.Errorf("Stripe.SecretKey is required"))
	}

	if !currencyCodeRegex.MatchString(c.Stripe.CurrencyCode) {
		errs = append(errs, fmt.Errorf("Stripe.CurrencyCode must be a lower-case three-letter ISO code"))
	}

	if c.GatewayTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GatewayTimeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
