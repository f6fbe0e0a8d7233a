package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

var configKeys = []string{
	"EXCHANGE_BASE_URL", "EXCHANGE_APP_KEY", "EXCHANGE_SESSION_TOKEN", "EXCHANGE_TIMEOUT_SECONDS",
	"MARKET_EVENT_TYPE_IDS", "MARKET_TYPE_CODES", "MARKET_COUNTRIES", "MARKET_IN_PLAY_ONLY",
	"MARKET_MAX_RESULTS", "MARKET_SORT", "MARKET_WINDOW_HOURS",
	"FETCH_MAX_IN_FLIGHT", "FETCH_PACING_MS", "FETCH_TIERS", "RUN_TIMEOUT_SECONDS",
	"RACECARD_SOURCE", "RACECARD_BASE_URL", "SQLITE_PATH",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PACING_KEY",
	"KAFKA_BROKERS", "SNAPSHOT_KAFKA_TOPIC", "PRESENT_TABLE", "OVERROUND_ALERT_THRESHOLD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.Exchange.Timeout)
	assert.Equal(t, 15, cfg.Filter.MaxResults)
	assert.False(t, cfg.Filter.InPlayOnly)
	assert.True(t, cfg.Filter.From.IsZero())
	assert.Equal(t, 4, cfg.Fetch.MaxInFlight)
	assert.Equal(t, 200*time.Millisecond, cfg.Fetch.Pacing)
	assert.Equal(t, markets.DefaultTiers(), cfg.Fetch.Tiers)
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "none", cfg.RaceCards.Source)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.Present.Table)
	assert.Equal(t, 100.0, cfg.Present.OverroundThreshold)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXCHANGE_APP_KEY", "key")
	t.Setenv("EXCHANGE_SESSION_TOKEN", "token")
	t.Setenv("MARKET_EVENT_TYPE_IDS", "7, 4339")
	t.Setenv("MARKET_TYPE_CODES", "WIN")
	t.Setenv("MARKET_COUNTRIES", "GB,IE,")
	t.Setenv("MARKET_IN_PLAY_ONLY", "true")
	t.Setenv("MARKET_WINDOW_HOURS", "6")
	t.Setenv("FETCH_TIERS", "medium,low")
	t.Setenv("FETCH_PACING_MS", "0")
	t.Setenv("RACECARD_SOURCE", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SNAPSHOT_KAFKA_TOPIC", "snapshots")
	t.Setenv("OVERROUND_ALERT_THRESHOLD", "99.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.Exchange.AppKey)
	assert.Equal(t, "token", cfg.Exchange.SessionToken)
	assert.Equal(t, []string{"7", "4339"}, cfg.Filter.EventTypeIDs)
	assert.Equal(t, []string{"GB", "IE"}, cfg.Filter.CountryCodes)
	assert.True(t, cfg.Filter.InPlayOnly)
	assert.Equal(t, 6*time.Hour, cfg.Filter.To.Sub(cfg.Filter.From))
	require.Len(t, cfg.Fetch.Tiers, 2)
	assert.Equal(t, markets.TierMedium, cfg.Fetch.Tiers[0].Tier)
	assert.Zero(t, cfg.Fetch.Pacing)
	assert.Equal(t, "sqlite", cfg.RaceCards.Source)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 99.5, cfg.Present.OverroundThreshold)
}

func TestLoadReportsEveryBadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_MAX_IN_FLIGHT", "lots")
	t.Setenv("FETCH_TIERS", "high,none")
	t.Setenv("RACECARD_SOURCE", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_MAX_IN_FLIGHT")
	assert.Contains(t, err.Error(), "FETCH_TIERS")
	assert.Contains(t, err.Error(), "RACECARD_SOURCE")
}
