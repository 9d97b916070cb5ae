package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"netlify"}, cfg.Platforms)
	assert.Equal(t, "deployment_results.csv", cfg.Output)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.BaseDelay)
	assert.Equal(t, 5*time.Minute, cfg.MaxDelay)
	assert.Equal(t, 10*time.Second, cfg.Delay)
	assert.Equal(t, 90.0, cfg.MaxSizeMB)
	assert.Equal(t, 10*time.Minute, cfg.AttemptTimeout)
	assert.False(t, cfg.RetryFailures)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ".repohost/results.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "https://api.netlify.com/api/v1", cfg.Netlify.APIURL)
	assert.Equal(t, "https://github.com", cfg.GitHub.ArchiveURL)
	assert.Empty(t, cfg.Status.Addr)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
platforms: [netlify, github]
max_retries: 5
base_delay: 2s
delay: 30s
max_size_mb: 25
retry_failures: true
platform_delays:
  render: 1m

store:
  driver: csv

log:
  level: debug
  format: json

render:
  owner_id: own-123
`
	tmpFile := filepath.Join(t.TempDir(), "repohost.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0o644))

	cfg, err := LoadConfig(tmpFile, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"netlify", "github"}, cfg.Platforms)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Delay)
	assert.Equal(t, 25.0, cfg.MaxSizeMB)
	assert.True(t, cfg.RetryFailures)
	assert.Equal(t, "csv", cfg.Store.Driver)
	assert.Equal(t, ".repohost/results.csv", cfg.Store.Path)
	assert.Equal(t, "own-123", cfg.PlatformConfig().RenderOwnerID)

	overrides, err := cfg.DelayOverrides()
	require.NoError(t, err)
	assert.Equal(t, map[domain.PlatformKind]time.Duration{domain.PlatformRender: time.Minute}, overrides)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("platforms: [netlify\n"), 0o644))

	_, err := LoadConfig(tmpFile, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPOHOST_PLATFORMS", "render,github")
	t.Setenv("REPOHOST_MAX_RETRIES", "7")
	t.Setenv("REPOHOST_STORE_PATH", "/tmp/results.db")
	t.Setenv("REPOHOST_NETLIFY_API_URL", "http://127.0.0.1:9999")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"render", "github"}, cfg.Platforms)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, "/tmp/results.db", cfg.Store.Path)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Netlify.APIURL)
}

func TestLoadConfig_FlagsWinOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPOHOST_MAX_RETRIES", "7")
	t.Setenv("REPOHOST_DELAY", "1m")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP("max-retries", "r", 3, "")
	flags.DurationP("delay", "d", 10*time.Second, "")
	flags.StringSliceP("platforms", "p", []string{"netlify"}, "")
	require.NoError(t, flags.Parse([]string{"-r", "1", "-p", "render", "-p", "netlify"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxRetries)
	// unset flags do not mask the environment
	assert.Equal(t, time.Minute, cfg.Delay)
	assert.Equal(t, []string{"render", "netlify"}, cfg.Platforms)
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"zero base delay", func(c *Config) { c.BaseDelay = 0 }, "base_delay"},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, "delay"},
		{"zero size", func(c *Config) { c.MaxSizeMB = 0 }, "max_size_mb"},
		{"jitter above one", func(c *Config) { c.Jitter = 1.5 }, "jitter"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"unknown platform", func(c *Config) { c.Platforms = []string{"heroku"} }, "unknown platform"},
		{"no platforms", func(c *Config) { c.Platforms = nil }, "no platforms"},
		{"bad platform delay", func(c *Config) { c.PlatformDelays = map[string]time.Duration{"vercel": time.Second} }, "platform_delays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("", nil)
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ZeroRetriesAllowed(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	cfg.MaxRetries = 0
	assert.NoError(t, cfg.Validate())
}

func TestFetcherConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	cfg.MaxSizeMB = 1

	fc := cfg.FetcherConfig("gh-token")
	assert.Equal(t, "gh-token", fc.Token)
	assert.Equal(t, int64(4*1024*1024), fc.MaxArchiveBytes)
	assert.Equal(t, "https://api.github.com", fc.APIURL)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "json"}}, &buf)

	logger.Debug("hidden")
	logger.Info("shown", "repo", "https://github.com/acme/a")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "https://github.com/acme/a", entry["repo"])
}

func TestSetupLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Log: LogConfig{Level: "warn", Format: "text"}}, &buf)

	logger.Info("hidden")
	logger.Warn("careful")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=careful")
}

func TestSetupLogger_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&Config{Verbose: true, Log: LogConfig{Level: "error"}}, &buf)

	logger.Debug("details")
	assert.Contains(t, buf.String(), "details")
}

// =============================================================================
// Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"REPOHOST_PLATFORMS",
		"REPOHOST_OUTPUT",
		"REPOHOST_MAX_RETRIES",
		"REPOHOST_BASE_DELAY",
		"REPOHOST_MAX_DELAY",
		"REPOHOST_DELAY",
		"REPOHOST_MAX_SIZE_MB",
		"REPOHOST_RESUME_FROM",
		"REPOHOST_RETRY_FAILURES",
		"REPOHOST_STORE_DRIVER",
		"REPOHOST_STORE_PATH",
		"REPOHOST_LOG_LEVEL",
		"REPOHOST_LOG_FORMAT",
		"REPOHOST_STATUS_ADDR",
		"REPOHOST_NETLIFY_API_URL",
		"REPOHOST_RENDER_API_URL",
		"REPOHOST_RENDER_OWNER_ID",
		"REPOHOST_GITHUB_API_URL",
		"REPOHOST_GITHUB_ARCHIVE_URL",
	}
	// viper treats empty variables as unset
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}
