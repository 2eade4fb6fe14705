package config

import (
	"log"
	"os"
	"strings"

	"fxdesk/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Exchange-rate API
	ForexAPIKey  string
	ForexAPIBase string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	HTTPAddr      string
	MetricsAddr   string

	// Rate feed
	TrackedPairs    string // comma-separated "EUR/USD,GBP/USD"
	RefreshSchedule string // cron spec for the refresher

	// Auto-trade alerting
	AutoTradeMinConfidence int
	WebhookURL             string
	TelegramBotToken       string
	TelegramChatID         string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		ForexAPIKey:  mustEnv("FOREX_API_KEY"),
		ForexAPIBase: getEnv("FOREX_API_BASE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/rates.db"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TrackedPairs:    getEnv("TRACKED_PAIRS", "EUR/USD,GBP/USD,USD/JPY,USD/CHF,AUD/USD,USD/CAD,EUR/GBP,EUR/JPY"),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 1m"),

		AutoTradeMinConfidence: getEnvInt("AUTOTRADE_MIN_CONFIDENCE", 60),
		WebhookURL:             getEnv("ALERT_WEBHOOK_URL", ""),
		TelegramBotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:         getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParsePairs parses TrackedPairs into validated "BASE/QUOTE" symbols.
// Malformed entries are skipped with a warning.
func (c *Config) ParsePairs() []string {
	parts := strings.Split(c.TrackedPairs, ",")
	pairs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		base, quote, err := model.SplitPair(p)
		if err != nil {
			log.Printf("[config] skipping invalid pair: %q", p)
			continue
		}
		pairs = append(pairs, model.PairSymbol(base, quote))
	}
	return pairs
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			log.Printf("[config] invalid integer for %s: %q, using %d", key, v, fallback)
			return fallback
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
