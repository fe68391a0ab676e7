// Package config reads runtime settings from the environment.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SediraYasser20/DOLX/internal/core"
)

// Config holds every setting the binaries need.
type Config struct {
	DatabaseURL string // Postgres; takes precedence over SQLitePath
	SQLitePath  string
	BankEnabled bool
	LogLevel    string
	Pricing     core.PricingPolicy
	Posting     core.PostingPolicy
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  envOr("SQLITE_PATH", "./dolx.db"),
		LogLevel:    strings.ToLower(envOr("LOG_LEVEL", "info")),
		Pricing:     core.DefaultPricingPolicy(),
		Posting:     core.DefaultPostingPolicy(),
	}

	var err error
	if cfg.BankEnabled, err = envBool("BANK_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.Pricing.EnforceMinimumPrice, err = envBool("ENFORCE_MINIMUM_PRICE", cfg.Pricing.EnforceMinimumPrice); err != nil {
		return nil, err
	}
	if cfg.Pricing.OverrideProductPrice, err = envBool("PRICE_OVERRIDE_ON_PRODUCT", false); err != nil {
		return nil, err
	}
	if cfg.Posting.RequireAccountingCode, err = envBool("ACCOUNTING_ENABLED", false); err != nil {
		return nil, err
	}
	multicurrency, err := envBool("MULTICURRENCY_ENABLED", false)
	if err != nil {
		return nil, err
	}
	cfg.Posting.AllowCrossCurrencyLedger = multicurrency

	if v := os.Getenv("BASE_CURRENCY"); v != "" {
		cfg.Posting.BaseCurrency = strings.ToUpper(strings.TrimSpace(v))
	}
	if len(cfg.Posting.BaseCurrency) != 3 {
		return nil, fmt.Errorf("BASE_CURRENCY must be a 3-letter ISO code, got %q", cfg.Posting.BaseCurrency)
	}
	return cfg, nil
}

// NewLogger builds the zap logger for LogLevel. "debug" gives the development config.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
