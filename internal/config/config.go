package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// Config is everything a snapshot run reads from the environment.
type Config struct {
	Exchange  ExchangeConfig
	Filter    markets.MarketFilter
	Fetch     FetchConfig
	RaceCards RaceCardConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Present   PresentConfig

	RunTimeout time.Duration
}

type ExchangeConfig struct {
	BaseURL      string
	AppKey       string
	SessionToken string
	Timeout      time.Duration
}

type FetchConfig struct {
	MaxInFlight int
	Pacing      time.Duration
	Tiers       []markets.TierSpec
}

// RaceCardConfig selects the enrichment source: "api", "sqlite", "chain"
// (api then sqlite) or "none".
type RaceCardConfig struct {
	Source     string
	BaseURL    string
	SQLitePath string
}

// RedisConfig enables the cross-process pacer when Addr is set.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	PacingKey string
}

// KafkaConfig enables snapshot publishing when Topic is set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type PresentConfig struct {
	Table              bool
	OverroundThreshold float64
}

// Load reads the configuration from the environment. Unset keys take their
// defaults; malformed values are errors.
func Load() (Config, error) {
	var cfg Config
	var errs []string
	fail := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg.Exchange = ExchangeConfig{
		BaseURL:      envString("EXCHANGE_BASE_URL", ""),
		AppKey:       envString("EXCHANGE_APP_KEY", ""),
		SessionToken: envString("EXCHANGE_SESSION_TOKEN", ""),
	}
	secs, err := envInt("EXCHANGE_TIMEOUT_SECONDS", 20)
	fail(err)
	cfg.Exchange.Timeout = time.Duration(secs) * time.Second

	cfg.Filter = markets.MarketFilter{
		EventTypeIDs:    envList("MARKET_EVENT_TYPE_IDS"),
		MarketTypeCodes: envList("MARKET_TYPE_CODES"),
		CountryCodes:    envList("MARKET_COUNTRIES"),
		Sort:            envString("MARKET_SORT", ""),
	}
	cfg.Filter.InPlayOnly, err = envBool("MARKET_IN_PLAY_ONLY", false)
	fail(err)
	cfg.Filter.MaxResults, err = envInt("MARKET_MAX_RESULTS", 15)
	fail(err)
	window, err := envInt("MARKET_WINDOW_HOURS", 0)
	fail(err)
	if window > 0 {
		now := time.Now().UTC()
		cfg.Filter.From = now
		cfg.Filter.To = now.Add(time.Duration(window) * time.Hour)
	}

	cfg.Fetch.MaxInFlight, err = envInt("FETCH_MAX_IN_FLIGHT", 4)
	fail(err)
	pacingMS, err := envInt("FETCH_PACING_MS", 200)
	fail(err)
	cfg.Fetch.Pacing = time.Duration(pacingMS) * time.Millisecond
	cfg.Fetch.Tiers = markets.DefaultTiers()
	if raw := os.Getenv("FETCH_TIERS"); raw != "" {
		tiers, err := markets.ParseTiers(raw)
		if err != nil {
			fail(fmt.Errorf("FETCH_TIERS: %w", err))
		} else {
			cfg.Fetch.Tiers = tiers
		}
	}

	runSecs, err := envInt("RUN_TIMEOUT_SECONDS", 120)
	fail(err)
	cfg.RunTimeout = time.Duration(runSecs) * time.Second

	cfg.RaceCards = RaceCardConfig{
		Source:     strings.ToLower(envString("RACECARD_SOURCE", "none")),
		BaseURL:    envString("RACECARD_BASE_URL", ""),
		SQLitePath: envString("SQLITE_PATH", ""),
	}
	switch cfg.RaceCards.Source {
	case "api", "sqlite", "chain", "none":
	default:
		fail(fmt.Errorf("RACECARD_SOURCE: unknown source %q", cfg.RaceCards.Source))
	}

	cfg.Redis = RedisConfig{
		Addr:      envString("REDIS_ADDR", ""),
		Password:  os.Getenv("REDIS_PASSWORD"),
		PacingKey: envString("REDIS_PACING_KEY", ""),
	}
	cfg.Redis.DB, err = envInt("REDIS_DB", 0)
	fail(err)

	cfg.Kafka = KafkaConfig{
		Brokers: envList("KAFKA_BROKERS"),
		Topic:   envString("SNAPSHOT_KAFKA_TOPIC", ""),
	}

	cfg.Present.Table, err = envBool("PRESENT_TABLE", true)
	fail(err)
	cfg.Present.OverroundThreshold, err = envFloat("OVERROUND_ALERT_THRESHOLD", 100)
	fail(err)

	if len(errs) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envString(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", key, val)
	}
	return parsed, nil
}

func envFloat(key string, def float64) (float64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a number", key, val)
	}
	return parsed, nil
}

func envBool(key string, def bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a boolean", key, val)
	}
	return parsed, nil
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
