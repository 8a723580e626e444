package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/seva")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("MERCHANT_KEY", "gtKFFx")
	t.Setenv("MERCHANT_SALT", "eCwWELxi")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, PaymentModeGateway, cfg.PaymentMode)
	assert.False(t, cfg.Simulated())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3*time.Second, cfg.SimulatedConfirmDelay)
	assert.Equal(t, 100, cfg.RateRPS)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("MERCHANT_KEY", "")
	t.Setenv("MERCHANT_SALT", "")
	t.Setenv("PAYMENT_MODE", "")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{"DATABASE_URL", "SESSION_SECRET", "MERCHANT_KEY", "MERCHANT_SALT"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_SimulatedSkipsMerchantCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MERCHANT_KEY", "")
	t.Setenv("MERCHANT_SALT", "")
	t.Setenv("PAYMENT_MODE", "Simulated")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Simulated())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RATE_LIMIT_RPS", "lots")
	t.Setenv("CACHE_TTL", "forever")
	t.Setenv("PUBLIC_BASE_URL", "https://donate.example.org/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.RateRPS)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "https://donate.example.org", cfg.PublicBaseURL)
}

func TestValidate_UnknownPaymentMode(t *testing.T) {
	cfg := Config{DatabaseURL: "x", SessionSecret: "y", PaymentMode: "paypal"}
	assert.Error(t, cfg.Validate())
}
