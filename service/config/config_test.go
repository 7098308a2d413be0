package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv() {
	cleanupEnv()
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("STRIPE_PUBLIC_KEY", "pk_test_123")
	os.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	os.Setenv("STRIPE_CURRENCY_CODE", "cad")
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnv()
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "pk_test_123", cfg.Stripe.PublicKey)
	assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
	assert.Equal(t, "cad", cfg.Stripe.CurrencyCode)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Empty(t, cfg.NATSURL, "NATS is optional")
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		message string
	}{
		{"database url", "DATABASE_URL", "DATABASE_URL is required"},
		{"public key", "STRIPE_PUBLIC_KEY", "STRIPE_PUBLIC_KEY is required"},
		{"secret key", "STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY is required"},
		{"currency", "STRIPE_CURRENCY_CODE", "STRIPE_CURRENCY_CODE is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv()
			defer cleanupEnv()
			os.Unsetenv(tt.unset)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoad_ReportsAllErrors(t *testing.T) {
	cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "STRIPE_PUBLIC_KEY is required")
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY is required")
	assert.Contains(t, err.Error(), "STRIPE_CURRENCY_CODE is required")
}

func TestLoad_NormalizesCurrency(t *testing.T) {
	setRequiredEnv()
	os.Setenv("STRIPE_CURRENCY_CODE", " USD ")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "usd", cfg.Stripe.CurrencyCode)
}

func TestLoad_InvalidCurrency(t *testing.T) {
	setRequiredEnv()
	os.Setenv("STRIPE_CURRENCY_CODE", "dollars")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "three-letter ISO code")
}

func TestLoad_InvalidGatewayTimeout(t *testing.T) {
	setRequiredEnv()
	os.Setenv("GATEWAY_TIMEOUT", "invalid")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")

	os.Setenv("GATEWAY_TIMEOUT", "-5s")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_TIMEOUT must be positive")
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv()
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("GATEWAY_TIMEOUT", "5s")
	os.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, "https://shop.example.com", cfg.PublicBaseURL)
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://localhost/test",
		Stripe: StripeConfig{
			PublicKey:    "pk_test_123",
			SecretKey:    "sk_test_123",
			CurrencyCode: "cad",
		},
		GatewayTimeout: 30 * time.Second,
	}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_Invalid(t *testing.T) {
	cfg := &Config{Stripe: StripeConfig{CurrencyCode: "CAD"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL is required")
	assert.Contains(t, err.Error(), "Stripe.PublicKey is required")
	assert.Contains(t, err.Error(), "Stripe.SecretKey is required")
	assert.Contains(t, err.Error(), "Stripe.CurrencyCode")
	assert.Contains(t, err.Error(), "GatewayTimeout must be positive")
}

func TestMustLoad_Panics(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	setRequiredEnv()
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("STRIPE_PUBLIC_KEY")
	os.Unsetenv("STRIPE_SECRET_KEY")
	os.Unsetenv("STRIPE_CURRENCY_CODE")
	os.Unsetenv("SERVER_ADDR")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("NATS_URL")
	os.Unsetenv("GATEWAY_TIMEOUT")
	os.Unsetenv("PUBLIC_BASE_URL")
}
