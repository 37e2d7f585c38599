package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DEFAULT_MONTHLY_BUDGET", "HISTORY_EXCHANGES", "TIMEZONE", "MARKET_TIMEOUT", "DB_DRIVER"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(10_000_000), cfg.DefaultBudget)
	assert.Equal(t, 10, cfg.HistoryExchanges)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.MarketTimeout)
}

func TestEnabledTools(t *testing.T) {
	t.Setenv("ENABLED_TOOLS", " add_expense, ,get_monthly_expenses ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"add_expense", "get_monthly_expenses"}, cfg.EnabledTools)

	t.Setenv("ENABLED_TOOLS", "")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.EnabledTools)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEFAULT_MONTHLY_BUDGET", "5000000")
	t.Setenv("HISTORY_EXCHANGES", "4")
	t.Setenv("MARKET_CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(5_000_000), cfg.DefaultBudget)
	assert.Equal(t, 4, cfg.HistoryExchanges)
	assert.Equal(t, 30*time.Second, cfg.MarketCacheTTL)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEFAULT_MONTHLY_BUDGET", "-3")
	t.Setenv("MARKET_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(10_000_000), cfg.DefaultBudget)
	assert.Equal(t, 5*time.Second, cfg.MarketTimeout)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Asia/Ho_Chi_Minh"}
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Location().String())

	cfg.Timezone = "Mars/Olympus"
	assert.Equal(t, time.UTC, cfg.Location())
}
