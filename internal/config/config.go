// Package config loads runtime configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port       string
	GinMode    string
	Store      string // "postgres" or "memory"
	NumWorkers int
	LogLevel   string
	LogPretty  bool

	DB          DBConfig
	MarketData  MarketDataConfig
	CORSOrigins []string

	QuoteStreamInterval time.Duration
	CachePurgeSchedule  string
	QuoteWarmSchedule   string // empty disables
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// MarketDataConfig configures the quote provider
type MarketDataConfig struct {
	SyntheticFallback bool
	RateLimit         int // requests per second against the upstream
	QuoteConcurrency  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		Store:      strings.ToLower(getEnv("STORE", "postgres")),
		NumWorkers: getEnvAsInt("NUM_WORKERS", 5),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogPretty:  getEnvAsBool("LOG_PRETTY", false),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5433"),
			User:     getEnv("DB_USER", "trader"),
			Password: getEnv("DB_PASSWORD", "trading123"),
			Name:     getEnv("DB_NAME", "portfolio_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MarketData: MarketDataConfig{
			SyntheticFallback: getEnvAsBool("MARKETDATA_SYNTHETIC_FALLBACK", false),
			RateLimit:         getEnvAsInt("MARKETDATA_RATE_LIMIT", 5),
			QuoteConcurrency:  getEnvAsInt("QUOTE_CONCURRENCY", 8),
		},
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		QuoteStreamInterval: getEnvAsDuration("QUOTE_STREAM_INTERVAL", 5*time.Second),
		CachePurgeSchedule:  getEnv("CACHE_PURGE_SCHEDULE", "@every 10m"),
		QuoteWarmSchedule:   os.Getenv("QUOTE_WARM_SCHEDULE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid STORE %q: want postgres or memory", c.Store)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("NUM_WORKERS must be at least 1, got %d", c.NumWorkers)
	}
	if c.MarketData.RateLimit < 1 {
		return fmt.Errorf("MARKETDATA_RATE_LIMIT must be at least 1, got %d", c.MarketData.RateLimit)
	}
	if c.MarketData.QuoteConcurrency < 1 {
		c.MarketData.QuoteConcurrency = 1
	}
	return nil
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
