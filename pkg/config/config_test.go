package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t, "LOG_LEVEL", "HTTP_PORT", "FEED_URL", "CATALOG_GAMMA_API_URL",
		"MAX_MARKETS", "MIN_VOLUME_24H", "MIN_LIQUIDITY", "PINNED_SLUG_PREFIXES",
		"STORAGE_MODE")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default LogLevel info, got %q", cfg.LogLevel)
	}
	if cfg.MaxMarkets != 200 {
		t.Errorf("expected default MaxMarkets 200, got %d", cfg.MaxMarkets)
	}
	if cfg.StorageMode != "console" {
		t.Errorf("expected default StorageMode console, got %q", cfg.StorageMode)
	}
	if len(cfg.PinnedSlugPrefixes) != 0 {
		t.Errorf("expected no pinned slug prefixes by default, got %v", cfg.PinnedSlugPrefixes)
	}
	if cfg.BookChannelBufferSize != 1024 {
		t.Errorf("expected default channel buffer 1024, got %d", cfg.BookChannelBufferSize)
	}
}

func TestLoadFromEnvUnlimitedMaxMarkets(t *testing.T) {
	clearEnv(t, "MAX_MARKETS")
	os.Setenv("MAX_MARKETS", "0")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.MaxMarkets != 0 {
		t.Errorf("expected MaxMarkets 0 (unlimited), got %d", cfg.MaxMarkets)
	}
}

func TestLoadFromEnvPinnedSlugPrefixesParsed(t *testing.T) {
	clearEnv(t, "PINNED_SLUG_PREFIXES")
	os.Setenv("PINNED_SLUG_PREFIXES", "btc-updown-5m, eth-updown-1h ,")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"btc-updown-5m", "eth-updown-1h"}
	if len(cfg.PinnedSlugPrefixes) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.PinnedSlugPrefixes)
	}
	for i := range want {
		if cfg.PinnedSlugPrefixes[i] != want[i] {
			t.Errorf("expected prefix[%d]=%q, got %q", i, want[i], cfg.PinnedSlugPrefixes[i])
		}
	}
}

func TestValidateRejectsEmptyFeedURL(t *testing.T) {
	cfg := &Config{
		HTTPPort:                 "8080",
		FeedURL:                  "",
		CatalogURL:               "https://gamma-api.polymarket.com",
		StorageMode:              "console",
		BookChannelBufferSize:    1024,
		WindowChannelBufferSize:  1024,
		ControlChannelBufferSize: 1024,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty FeedURL")
	}
}

func TestValidateRejectsBadStorageMode(t *testing.T) {
	cfg := &Config{
		HTTPPort:                 "8080",
		FeedURL:                  "wss://example.com",
		CatalogURL:               "https://example.com",
		StorageMode:              "redis",
		BookChannelBufferSize:    1024,
		WindowChannelBufferSize:  1024,
		ControlChannelBufferSize: 1024,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unrecognised storage mode")
	}
}

func TestValidateRejectsExpiryWindowInverted(t *testing.T) {
	cfg := &Config{
		HTTPPort:                 "8080",
		FeedURL:                  "wss://example.com",
		CatalogURL:               "https://example.com",
		StorageMode:              "console",
		MinExpiryMinutes:         2 * time.Hour,
		MaxExpiryHours:           1 * time.Hour,
		BookChannelBufferSize:    1024,
		WindowChannelBufferSize:  1024,
		ControlChannelBufferSize: 1024,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when MaxExpiryHours < MinExpiryMinutes")
	}
}

func TestValidateRejectsZeroChannelBuffer(t *testing.T) {
	cfg := &Config{
		HTTPPort:                "8080",
		FeedURL:                 "wss://example.com",
		CatalogURL:              "https://example.com",
		StorageMode:             "console",
		BookChannelBufferSize:   0,
		WindowChannelBufferSize: 1024,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero BookChannelBufferSize")
	}
}
