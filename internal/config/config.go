// Package config handles configuration loading and defaults for hopguard.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for hopguard.
type Config struct {
	Outbound OutboundConfig `toml:"outbound"`
	Feeds    FeedsConfig    `toml:"feeds"`
	Jellyfin JellyfinConfig `toml:"jellyfin"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Logging  LoggingConfig  `toml:"logging"`
}

// OutboundConfig holds settings shared by all outbound fetches.
type OutboundConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRedirects   int    `toml:"max_redirects"`
	UserAgent      string `toml:"user_agent"`
}

// Timeout returns the whole-chain fetch budget.
func (o OutboundConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// FeedsConfig holds feed-fetching settings.
type FeedsConfig struct {
	Workers      int     `toml:"workers"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second across all workers, 0 = unlimited
	AllowPrivate bool    `toml:"allow_private"`
}

// JellyfinConfig holds media-server connector settings. AllowPrivate is an
// operator decision for servers on the local network; it never applies to
// user-supplied URLs.
type JellyfinConfig struct {
	ServerURL    string `toml:"server_url"`
	APIKey       string `toml:"api_key"`
	UserID       string `toml:"user_id"`
	AllowPrivate bool   `toml:"allow_private"`
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"` // empty disables the endpoint
}

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Outbound: OutboundConfig{
			TimeoutSeconds: 30,
			MaxRedirects:   5,
			UserAgent:      "hopguard/1.0",
		},
		Feeds: FeedsConfig{
			Workers:   8,
			RateLimit: 4,
		},
		Metrics: MetricsConfig{
			ListenAddr: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a file, merging with defaults. A missing
// file is not an error; the defaults are used as-is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Outbound.TimeoutSeconds <= 0 {
		return fmt.Errorf("outbound.timeout_seconds must be positive")
	}
	if c.Outbound.MaxRedirects <= 0 {
		return fmt.Errorf("outbound.max_redirects must be positive")
	}
	if c.Feeds.Workers <= 0 {
		return fmt.Errorf("feeds.workers must be positive")
	}
	if c.Feeds.RateLimit < 0 {
		return fmt.Errorf("feeds.rate_limit must not be negative")
	}
	return nil
}
