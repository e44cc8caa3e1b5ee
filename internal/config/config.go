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
	Feed    FeedConfig    `mapstructure:"feed"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Proxy   ProxyConfig   `mapstructure:"proxy"`
	Browser BrowserConfig `mapstructure:"browser"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the operational HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FeedConfig names the upstream endpoints and the discovery window.
type FeedConfig struct {
	// BaseURL is the API origin; there is no default, a run without it
	// fails immediately.
	BaseURL string `mapstructure:"base_url"`
	// SiteURL is the user-facing site used for browser page context.
	SiteURL string `mapstructure:"site_url"`
	// Tournaments is the allow-list of tournament names.
	Tournaments  []string `mapstructure:"tournaments"`
	DayOffsets   []int    `mapstructure:"day_offsets"`
	Timezone     string   `mapstructure:"timezone"`
	LookbackDays int      `mapstructure:"lookback_days"`
}

// FetchConfig configures the lightweight HTTP acquisition tier.
type FetchConfig struct {
	UserAgent             string  `mapstructure:"user_agent"`
	TimeoutSeconds        int     `mapstructure:"timeout_seconds"`
	ConnectTimeoutSeconds int     `mapstructure:"connect_timeout_seconds"`
	MaxAttempts           int     `mapstructure:"max_attempts"`
	JitterMinMs           int     `mapstructure:"jitter_min_ms"`
	JitterMaxMs           int     `mapstructure:"jitter_max_ms"`
	JitterScale           float64 `mapstructure:"jitter_scale"`
	HostQPS               float64 `mapstructure:"host_qps"`
}

// ProxyConfig lists proxy endpoints and their health-tracking knobs.
type ProxyConfig struct {
	Endpoints            []string `mapstructure:"endpoints"`
	FailureThreshold     int      `mapstructure:"failure_threshold"`
	FailureWindowSeconds int      `mapstructure:"failure_window_seconds"`
	CooldownBaseSeconds  int      `mapstructure:"cooldown_base_seconds"`
	CooldownMaxSeconds   int      `mapstructure:"cooldown_max_seconds"`
}

// BrowserConfig configures the headless fallback tier.
type BrowserConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	MaxParallel       int    `mapstructure:"max_parallel"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	Locale            string `mapstructure:"locale"`
	Timezone          string `mapstructure:"timezone"`
}

// IngestConfig governs orchestration pacing.
type IngestConfig struct {
	Concurrency      int  `mapstructure:"concurrency"`
	InterItemDelayMs int  `mapstructure:"inter_item_delay_ms"`
	ArchivePayloads  bool `mapstructure:"archive_payloads"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects the raw payload archive backend.
type ArchiveConfig struct {
	// Backend is one of memory, local, gcs.
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. A missing file is fine when
// path is empty; settings then come from defaults and FEED_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FEED")
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
	// Empty defaults keep these keys visible to AutomaticEnv.
	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.site_url", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("archive.local_dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("feed.day_offsets", []int{0, 1})
	v.SetDefault("feed.timezone", "Europe/London")
	v.SetDefault("feed.lookback_days", 7)
	v.SetDefault("fetch.timeout_seconds", 20)
	v.SetDefault("fetch.connect_timeout_seconds", 10)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.jitter_min_ms", 500)
	v.SetDefault("fetch.jitter_max_ms", 2500)
	v.SetDefault("fetch.jitter_scale", 1.0)
	v.SetDefault("proxy.failure_threshold", 3)
	v.SetDefault("proxy.failure_window_seconds", 120)
	v.SetDefault("proxy.cooldown_base_seconds", 30)
	v.SetDefault("proxy.cooldown_max_seconds", 600)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.max_parallel", 1)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "Europe/London")
	v.SetDefault("ingest.concurrency", 2)
	v.SetDefault("ingest.inter_item_delay_ms", 1500)
	v.SetDefault("archive.backend", "memory")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.JitterMinMs <= 0 || c.Fetch.JitterMaxMs < c.Fetch.JitterMinMs {
		return fmt.Errorf("fetch jitter bounds must satisfy 0 < min <= max")
	}
	if c.Browser.Enabled && c.Browser.MaxParallel <= 0 {
		return fmt.Errorf("browser.max_parallel must be > 0 when the browser tier is enabled")
	}
	switch c.Archive.Backend {
	case "memory":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be one of memory, local, gcs")
	}
	return nil
}

// InterItemDelay converts the configured pacing into a duration.
func (c Config) InterItemDelay() time.Duration {
	return time.Duration(c.Ingest.InterItemDelayMs) * time.Millisecond
}

// JitterBounds converts the retry jitter config into durations.
func (c Config) JitterBounds() (time.Duration, time.Duration) {
	return time.Duration(c.Fetch.JitterMinMs) * time.Millisecond,
		time.Duration(c.Fetch.JitterMaxMs) * time.Millisecond
}
