package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data provider credentials
	DataBaseURL   string
	DataAPIKey    string
	DataAPISecret string

	// Infrastructure
	HTTPAddr      string
	MetricsAddr   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Universe (comma-separated, e.g. "SPY,QQQ")
	Symbols string

	// Fetch tuning
	FetchLimit   int
	FetchTimeout time.Duration

	// Computation worker pool size
	ComputeWorkers int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		DataBaseURL:   getEnv("DATA_BASE_URL", "https://data.alpaca.markets/v2/stocks"),
		DataAPIKey:    mustEnv("DATA_API_KEY"),
		DataAPISecret: mustEnv("DATA_API_SECRET"),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		SQLitePath:    getEnv("SQLITE_PATH", "data/market.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		Symbols: getEnv("SYMBOLS", "SPY"),

		FetchLimit:   getEnvInt("FETCH_LIMIT", 10000),
		FetchTimeout: time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 30)) * time.Second,

		ComputeWorkers: getEnvInt("COMPUTE_WORKERS", 4),
	}
}

// ParseSymbols parses the Symbols string into a deduplicated slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	seen := make(map[string]bool, len(parts))
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		symbols = append(symbols, p)
	}
	return symbols
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
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid integer for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
