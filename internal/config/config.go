// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Render  RenderConfig  `mapstructure:"render"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig governs the tiered fetch chain.
type FetchConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	NavTimeoutSec    int    `mapstructure:"nav_timeout_seconds"`
	StaticTimeoutSec int    `mapstructure:"static_timeout_seconds"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	RetryBackoffSec  int    `mapstructure:"retry_backoff_seconds"`
	SettleSec        int    `mapstructure:"settle_seconds"`
	ScrollPauseSec   int    `mapstructure:"scroll_pause_seconds"`
}

// RenderConfig controls artifact generation.
type RenderConfig struct {
	// OutputDir is where artifacts land when no object store is configured.
	OutputDir string `mapstructure:"output_dir"`
}

// StorageConfig selects and parameterizes the object store backend.
// Provider is one of "supabase", "gcs" or "local".
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	Endpoint  string `mapstructure:"endpoint"`
	Key       string `mapstructure:"key"`
	Bucket    string `mapstructure:"bucket"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// DBConfig controls access to the document catalog database.
// An empty DSN disables persistence; artifacts are still produced.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for acquisition event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCHARVEST")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetch.nav_timeout_seconds", 30)
	v.SetDefault("fetch.static_timeout_seconds", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.retry_backoff_seconds", 5)
	v.SetDefault("fetch.settle_seconds", 2)
	v.SetDefault("fetch.scroll_pause_seconds", 1)
	v.SetDefault("render.output_dir", "output_pdfs")
	v.SetDefault("storage.provider", "supabase")
	v.SetDefault("db.table", "documents")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.NavTimeoutSec <= 0 {
		return fmt.Errorf("fetch.nav_timeout_seconds must be > 0")
	}
	if c.Fetch.StaticTimeoutSec <= 0 {
		return fmt.Errorf("fetch.static_timeout_seconds must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	switch c.Storage.Provider {
	case "supabase", "gcs", "local", "":
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	return nil
}

// NavTimeout returns the per-attempt rendered navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetch.NavTimeoutSec) * time.Second
}

// StaticTimeout returns the static fetch timeout.
func (c Config) StaticTimeout() time.Duration {
	return time.Duration(c.Fetch.StaticTimeoutSec) * time.Second
}

// RetryBackoff returns the wait between rendered fetch attempts.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Fetch.RetryBackoffSec) * time.Second
}

// Settle returns the post-navigation wait before reading rendered HTML.
func (c Config) Settle() time.Duration {
	return time.Duration(c.Fetch.SettleSec) * time.Second
}

// ScrollPause returns the pause after each scroll motion.
func (c Config) ScrollPause() time.Duration {
	return time.Duration(c.Fetch.ScrollPauseSec) * time.Second
}
