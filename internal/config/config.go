// Package config loads and validates ingestion configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Ingest  IngestConfig  `mapstructure:"ingest"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Robots  RobotsConfig  `mapstructure:"robots"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// IngestConfig governs politeness behavior for outbound crawling.
type IngestConfig struct {
	UserAgent           string  `mapstructure:"user_agent"`
	ContactEmail        string  `mapstructure:"contact_email"`
	RequestDelaySeconds float64 `mapstructure:"request_delay_seconds"`
	MaxRetries          int     `mapstructure:"max_retries"`
	DefaultRPS          float64 `mapstructure:"default_rps"`
}

// HTTPConfig configures the outbound HTTP transport and retry backoff.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// RobotsConfig controls the robots.txt cache.
type RobotsConfig struct {
	CacheTTLSeconds     int `mapstructure:"cache_ttl_seconds"`
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment. Environment variables use
// the KG prefix with dots replaced by underscores (e.g. KG_INGEST_USER_AGENT).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ingest.user_agent", "WorkdayKG-Academic-Research/1.0")
	v.SetDefault("ingest.contact_email", "academic-research@example.edu")
	v.SetDefault("ingest.request_delay_seconds", 1.0)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.default_rps", 1.0)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 60000)
	v.SetDefault("robots.cache_ttl_seconds", 3600)
	v.SetDefault("robots.fetch_timeout_seconds", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Ingest.UserAgent == "" {
		return fmt.Errorf("ingest.user_agent must be set")
	}
	if c.Ingest.ContactEmail == "" {
		return fmt.Errorf("ingest.contact_email must be set")
	}
	if c.Ingest.RequestDelaySeconds <= 0 {
		return fmt.Errorf("ingest.request_delay_seconds must be > 0")
	}
	if c.Ingest.MaxRetries < 0 {
		return fmt.Errorf("ingest.max_retries must be >= 0")
	}
	if c.Ingest.DefaultRPS <= 0 {
		return fmt.Errorf("ingest.default_rps must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Robots.CacheTTLSeconds <= 0 {
		return fmt.Errorf("robots.cache_ttl_seconds must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// RequestDelay returns the default crawl delay as a duration.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Ingest.RequestDelaySeconds * float64(time.Second))
}

// HTTPTimeout returns the transport timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RobotsTTL returns the robots cache TTL as a duration.
func (c Config) RobotsTTL() time.Duration {
	return time.Duration(c.Robots.CacheTTLSeconds) * time.Second
}

// RobotsFetchTimeout returns the robots.txt fetch timeout as a duration.
func (c Config) RobotsFetchTimeout() time.Duration {
	return time.Duration(c.Robots.FetchTimeoutSeconds) * time.Second
}

// BackoffInitial returns the initial retry backoff as a duration.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry backoff ceiling as a duration.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}
