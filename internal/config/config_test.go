package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 2, cfg.Ingest.Concurrency)
	require.Equal(t, 1500*time.Millisecond, cfg.InterItemDelay())
	require.Equal(t, []int{0, 1}, cfg.Feed.DayOffsets)
	require.Equal(t, "Europe/London", cfg.Feed.Timezone)
	require.Equal(t, 7, cfg.Feed.LookbackDays)
	require.Equal(t, 3, cfg.Fetch.MaxAttempts)
	require.Equal(t, "memory", cfg.Archive.Backend)

	jitterMin, jitterMax := cfg.JitterBounds()
	require.Equal(t, 500*time.Millisecond, jitterMin)
	require.Equal(t, 2500*time.Millisecond, jitterMax)

	require.Empty(t, cfg.Feed.BaseURL, "base url has no default")
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
feed:
  base_url: https://api.example.com
  tournaments:
    - Premier League
    - LaLiga
  lookback_days: 14
fetch:
  max_attempts: 5
  jitter_scale: 2.5
proxy:
  endpoints:
    - http://proxy-1:3128
    - http://proxy-2:3128
ingest:
  concurrency: 2
  inter_item_delay_ms: 3000
archive:
  backend: local
  local_dir: /tmp/payloads
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://api.example.com", cfg.Feed.BaseURL)
	require.Equal(t, []string{"Premier League", "LaLiga"}, cfg.Feed.Tournaments)
	require.Equal(t, 14, cfg.Feed.LookbackDays)
	require.Equal(t, 5, cfg.Fetch.MaxAttempts)
	require.Equal(t, 2.5, cfg.Fetch.JitterScale)
	require.Len(t, cfg.Proxy.Endpoints, 2)
	require.Equal(t, 3*time.Second, cfg.InterItemDelay())
	require.Equal(t, "local", cfg.Archive.Backend)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FEED_SERVER_PORT", "7070")
	t.Setenv("FEED_FEED_BASE_URL", "https://api.example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "https://api.example.org", cfg.Feed.BaseURL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Fetch: FetchConfig{
				MaxAttempts: 3, JitterMinMs: 500, JitterMaxMs: 2500,
			},
			Ingest:  IngestConfig{Concurrency: 2},
			Archive: ArchiveConfig{Backend: "memory"},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }},
		{"zero attempts", func(c *Config) { c.Fetch.MaxAttempts = 0 }},
		{"inverted jitter", func(c *Config) { c.Fetch.JitterMaxMs = 100 }},
		{"browser without parallel", func(c *Config) { c.Browser.Enabled = true }},
		{"local archive without dir", func(c *Config) { c.Archive.Backend = "local" }},
		{"gcs archive without bucket", func(c *Config) { c.Archive.Backend = "gcs" }},
		{"unknown archive backend", func(c *Config) { c.Archive.Backend = "s3" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, base().Validate())
}

func TestLoadBadFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
