package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SediraYasser20/DOLX/internal/config"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "SQLITE_PATH", "BASE_CURRENCY", "BANK_ENABLED", "ACCOUNTING_ENABLED",
		"MULTICURRENCY_ENABLED", "ENFORCE_MINIMUM_PRICE", "PRICE_OVERRIDE_ON_PRODUCT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "./dolx.db", cfg.SQLitePath)
	assert.True(t, cfg.BankEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Pricing.EnforceMinimumPrice)
	assert.False(t, cfg.Pricing.OverrideProductPrice)
	assert.False(t, cfg.Posting.RequireAccountingCode)
	assert.False(t, cfg.Posting.AllowCrossCurrencyLedger)
	assert.Equal(t, "EUR", cfg.Posting.BaseCurrency)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/dolx")
	t.Setenv("BASE_CURRENCY", " usd ")
	t.Setenv("BANK_ENABLED", "false")
	t.Setenv("ACCOUNTING_ENABLED", "1")
	t.Setenv("MULTICURRENCY_ENABLED", "true")
	t.Setenv("ENFORCE_MINIMUM_PRICE", "0")
	t.Setenv("PRICE_OVERRIDE_ON_PRODUCT", "TRUE")
	t.Setenv("LOG_LEVEL", "WARN")

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/dolx", cfg.DatabaseURL)
	assert.Equal(t, "USD", cfg.Posting.BaseCurrency)
	assert.False(t, cfg.BankEnabled)
	assert.True(t, cfg.Posting.RequireAccountingCode)
	assert.True(t, cfg.Posting.AllowCrossCurrencyLedger)
	assert.False(t, cfg.Pricing.EnforceMinimumPrice)
	assert.True(t, cfg.Pricing.OverrideProductPrice)
	assert.Equal(t, "warn", cfg.LogLevel)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1), "debug must be off at warn level")
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"BANK_ENABLED", "sometimes", "BANK_ENABLED must be a boolean"},
		{"ENFORCE_MINIMUM_PRICE", "yes please", "ENFORCE_MINIMUM_PRICE must be a boolean"},
		{"BASE_CURRENCY", "EURO", "BASE_CURRENCY must be a 3-letter ISO code"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := config.FromEnv()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := &config.Config{LogLevel: "chatty"}
	_, err := cfg.NewLogger()
	assert.ErrorContains(t, err, "invalid LOG_LEVEL")
}
