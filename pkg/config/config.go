package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Feed (price-change/trade websocket)
	FeedURL          string
	FeedDialTimeout   time.Duration
	FeedPongTimeout   time.Duration
	FeedPingInterval  time.Duration
	FeedBufferSize    int

	// Universe Fetcher (Gamma markets catalog)
	CatalogURL            string
	MaxMarkets            int
	MinVolume24h          float64
	MinLiquidity          float64
	MinExpiryMinutes      time.Duration
	MaxExpiryHours        time.Duration
	PinnedSlugPrefixes    []string
	CatalogRefetchInterval time.Duration

	// Pipeline buffers (spec: bounded channels, capacity 1024 by default)
	BookChannelBufferSize    int
	WindowChannelBufferSize  int
	ControlChannelBufferSize int

	// Storage
	StorageMode  string // "postgres" or "console"
	DatabasePath string // DATABASE_PATH; loaded but not read: postgres mode connects with the Postgres* fields
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Feed defaults
		FeedURL:         getEnvOrDefault("FEED_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		FeedDialTimeout: getDurationOrDefault("FEED_DIAL_TIMEOUT", 10*time.Second),
		FeedPongTimeout: getDurationOrDefault("FEED_PONG_TIMEOUT", 15*time.Second),
		FeedPingInterval: getDurationOrDefault("FEED_PING_INTERVAL", 10*time.Second),
		FeedBufferSize:  getIntOrDefault("FEED_MESSAGE_BUFFER_SIZE", 1024),

		// Universe Fetcher defaults
		CatalogURL:             getEnvOrDefault("CATALOG_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		MaxMarkets:             getIntOrDefault("MAX_MARKETS", 200),
		MinVolume24h:           getFloat64OrDefault("MIN_VOLUME_24H", 0),
		MinLiquidity:           getFloat64OrDefault("MIN_LIQUIDITY", 0),
		MinExpiryMinutes:       getDurationOrDefault("MIN_EXPIRY_MINUTES", 0),
		MaxExpiryHours:         getDurationOrDefault("MAX_EXPIRY_HOURS", 0),
		PinnedSlugPrefixes:     getStringSliceOrDefault("PINNED_SLUG_PREFIXES", nil),
		CatalogRefetchInterval: getDurationOrDefault("CATALOG_REFETCH_INTERVAL", 30*time.Second),

		// Pipeline buffer defaults
		BookChannelBufferSize:    getIntOrDefault("BOOK_CHANNEL_BUFFER_SIZE", 1024),
		WindowChannelBufferSize:  getIntOrDefault("WINDOW_CHANNEL_BUFFER_SIZE", 1024),
		ControlChannelBufferSize: getIntOrDefault("CONTROL_CHANNEL_BUFFER_SIZE", 1024),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", ""),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "pmspread"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "pmspread123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "pmspread"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() (err error) {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.FeedURL == "" {
		return errors.New("FEED_URL cannot be empty")
	}

	if c.CatalogURL == "" {
		return errors.New("CATALOG_GAMMA_API_URL cannot be empty")
	}

	if c.MaxMarkets < 0 {
		return fmt.Errorf("MAX_MARKETS must be non-negative (0 = unlimited), got %d", c.MaxMarkets)
	}

	if c.MinVolume24h < 0 {
		return fmt.Errorf("MIN_VOLUME_24H must be non-negative, got %f", c.MinVolume24h)
	}

	if c.MinLiquidity < 0 {
		return fmt.Errorf("MIN_LIQUIDITY must be non-negative, got %f", c.MinLiquidity)
	}

	if c.MaxExpiryHours > 0 && c.MinExpiryMinutes > 0 && c.MaxExpiryHours < c.MinExpiryMinutes {
		return fmt.Errorf("MAX_EXPIRY_HOURS (%s) must be >= MIN_EXPIRY_MINUTES (%s)",
			c.MaxExpiryHours, c.MinExpiryMinutes)
	}

	if c.BookChannelBufferSize < 1 {
		return fmt.Errorf("BOOK_CHANNEL_BUFFER_SIZE must be at least 1, got %d", c.BookChannelBufferSize)
	}

	if c.WindowChannelBufferSize < 1 {
		return fmt.Errorf("WINDOW_CHANNEL_BUFFER_SIZE must be at least 1, got %d", c.WindowChannelBufferSize)
	}

	if c.ControlChannelBufferSize < 1 {
		return fmt.Errorf("CONTROL_CHANNEL_BUFFER_SIZE must be at least 1, got %d", c.ControlChannelBufferSize)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getStringSliceOrDefault parses a comma-separated environment variable
// into a slice, trimming whitespace around each entry and dropping empty
// ones. Used for PINNED_SLUG_PREFIXES.
func getStringSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
