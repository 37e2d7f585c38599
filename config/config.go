// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/chitieu/finbot/logger"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port string
	Env  string

	// Model provider
	AnthropicKey string
	Model        string
	MaxTokens    int64

	// Ledger database
	DBDriver string
	DBDSN    string

	// Assistant behaviour
	DefaultBudget    int64
	HistoryExchanges int
	Timezone         string
	Language         string

	// EnabledTools restricts the tools offered to the model. Empty enables all.
	EnabledTools []string

	// Market data
	CoinGeckoURL   string
	FXURL          string
	MarketTimeout  time.Duration
	MarketCacheTTL time.Duration
}

// Load loads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debug(".env file not found, using process environment")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),

		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:        getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:    getEnvInt64("MAX_TOKENS", 1024),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "finbot.db"),

		DefaultBudget:    getEnvInt64("DEFAULT_MONTHLY_BUDGET", 10_000_000),
		HistoryExchanges: int(getEnvInt64("HISTORY_EXCHANGES", 10)),
		Timezone:         getEnv("TIMEZONE", "Asia/Ho_Chi_Minh"),
		Language:         getEnv("LANGUAGE", "vi"),
		EnabledTools:     getEnvList("ENABLED_TOOLS"),

		CoinGeckoURL:   getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		FXURL:          getEnv("FX_URL", "https://open.er-api.com/v6"),
		MarketTimeout:  getEnvDuration("MARKET_TIMEOUT", 5*time.Second),
		MarketCacheTTL: getEnvDuration("MARKET_CACHE_TTL", time.Minute),
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logger.Get().Warnw("invalid TIMEZONE, falling back to UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		logger.Get().Warnw("invalid integer setting, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

// getEnvList splits a comma-separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Get().Warnw("invalid duration setting, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return d
}
