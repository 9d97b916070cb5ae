package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/core/retry"
	"github.com/manideepv28/delopment-netlify/internal/shell/platform"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
	"github.com/manideepv28/delopment-netlify/internal/shell/status"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Platforms      []string                 `mapstructure:"platforms"`
	Output         string                   `mapstructure:"output"`
	MaxRetries     int                      `mapstructure:"max_retries"`
	BaseDelay      time.Duration            `mapstructure:"base_delay"`
	MaxDelay       time.Duration            `mapstructure:"max_delay"`
	Delay          time.Duration            `mapstructure:"delay"`
	PlatformDelays map[string]time.Duration `mapstructure:"platform_delays"`
	MaxSizeMB      float64                  `mapstructure:"max_size_mb"`
	ResumeFrom     string                   `mapstructure:"resume_from"`
	RetryFailures  bool                     `mapstructure:"retry_failures"`
	Jitter         float64                  `mapstructure:"jitter"`
	AttemptTimeout time.Duration            `mapstructure:"attempt_timeout"`
	Sequential     bool                     `mapstructure:"sequential"`
	Verbose        bool                     `mapstructure:"verbose"`
	Summary        string                   `mapstructure:"summary"`
	EnvFile        string                   `mapstructure:"env_file"`
	WorkDir        string                   `mapstructure:"work_dir"`

	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Status  StatusConfig  `mapstructure:"status"`
	Netlify NetlifyConfig `mapstructure:"netlify"`
	Render  RenderConfig  `mapstructure:"render"`
	GitHub  GitHubConfig  `mapstructure:"github"`
}

// StoreConfig selects the result store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or csv
	Path   string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StatusConfig holds the optional progress server configuration.
type StatusConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the server
}

// NetlifyConfig holds Netlify API configuration.
type NetlifyConfig struct {
	APIURL string `mapstructure:"api_url"`
}

// RenderConfig holds Render API configuration.
type RenderConfig struct {
	APIURL  string `mapstructure:"api_url"`
	OwnerID string `mapstructure:"owner_id"`
}

// GitHubConfig holds GitHub API and archive configuration.
type GitHubConfig struct {
	APIURL     string `mapstructure:"api_url"`
	ArchiveURL string `mapstructure:"archive_url"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"platforms":       "platforms",
	"output":          "output",
	"max-retries":     "max_retries",
	"base-delay":      "base_delay",
	"max-delay":       "max_delay",
	"delay":           "delay",
	"max-size":        "max_size_mb",
	"resume-from":     "resume_from",
	"retry-failures":  "retry_failures",
	"jitter":          "jitter",
	"attempt-timeout": "attempt_timeout",
	"sequential":      "sequential",
	"verbose":         "verbose",
	"summary":         "summary",
	"env-file":        "env_file",
	"work-dir":        "work_dir",
	"store":           "store.driver",
	"db":              "store.path",
	"status-addr":     "status.addr",
	"log-level":       "log.level",
	"log-format":      "log.format",
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from defaults, an optional file, REPOHOST_*
// environment variables and finally the flags that were set on the command
// line. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	policy := retry.DefaultPolicy()
	v.SetDefault("platforms", []string{string(domain.PlatformNetlify)})
	v.SetDefault("output", "deployment_results.csv")
	v.SetDefault("max_retries", policy.MaxRetries)
	v.SetDefault("base_delay", policy.BaseDelay)
	v.SetDefault("max_delay", policy.MaxDelay)
	v.SetDefault("delay", "10s")
	v.SetDefault("max_size_mb", 90)
	v.SetDefault("resume_from", "")
	v.SetDefault("retry_failures", false)
	v.SetDefault("jitter", 0.0)
	v.SetDefault("attempt_timeout", "10m")
	v.SetDefault("sequential", false)
	v.SetDefault("verbose", false)
	v.SetDefault("summary", "")
	v.SetDefault("env_file", ".env")
	v.SetDefault("work_dir", "")
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("status.addr", "")

	pcfg := platform.DefaultConfig()
	gcfg := source.DefaultGitHubConfig()
	v.SetDefault("netlify.api_url", pcfg.NetlifyAPIURL)
	v.SetDefault("render.api_url", pcfg.RenderAPIURL)
	v.SetDefault("render.owner_id", "")
	v.SetDefault("github.api_url", pcfg.GitHubAPIURL)
	v.SetDefault("github.archive_url", gcfg.ArchiveURL)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// an explicitly named file must exist and parse
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
		}
	}

	v.SetEnvPrefix("REPOHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath(cfg.Store.Driver)
	}

	return &cfg, nil
}

func defaultStorePath(driver string) string {
	if strings.EqualFold(driver, store.DriverCSV) {
		return ".repohost/results.csv"
	}
	return ".repohost/results.db"
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, err := c.PlatformKinds(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.DelayOverrides(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var problems []string
	if c.MaxRetries < 0 {
		problems = append(problems, "max_retries must be >= 0")
	}
	if c.BaseDelay <= 0 {
		problems = append(problems, "base_delay must be > 0")
	}
	if c.MaxDelay < 0 {
		problems = append(problems, "max_delay must be >= 0")
	}
	if c.Delay < 0 {
		problems = append(problems, "delay must be >= 0")
	}
	if c.MaxSizeMB <= 0 {
		problems = append(problems, "max_size_mb must be > 0")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		problems = append(problems, "jitter must be within [0, 1]")
	}
	if c.AttemptTimeout < 0 {
		problems = append(problems, "attempt_timeout must be >= 0")
	}
	if c.Output == "" {
		problems = append(problems, "output must not be empty")
	}
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverSQLite, store.DriverCSV:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not sqlite or csv", c.Store.Driver))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not json or text", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// PlatformKinds parses the configured platform names.
func (c *Config) PlatformKinds() ([]domain.PlatformKind, error) {
	kinds, err := domain.ParsePlatformKinds(c.Platforms)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no platforms selected")
	}
	return kinds, nil
}

// DelayOverrides parses platform_delays.
func (c *Config) DelayOverrides() (map[domain.PlatformKind]time.Duration, error) {
	out := make(map[domain.PlatformKind]time.Duration, len(c.PlatformDelays))
	for name, d := range c.PlatformDelays {
		kind, err := domain.ParsePlatformKind(name)
		if err != nil {
			return nil, fmt.Errorf("platform_delays: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("platform_delays: %s must be >= 0", name)
		}
		out[kind] = d
	}
	return out, nil
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay,
		MaxDelay:   c.MaxDelay,
	}
}

// PlatformConfig returns the adapter configuration.
func (c *Config) PlatformConfig() platform.Config {
	cfg := platform.DefaultConfig()
	cfg.NetlifyAPIURL = c.Netlify.APIURL
	cfg.RenderAPIURL = c.Render.APIURL
	cfg.GitHubAPIURL = c.GitHub.APIURL
	cfg.RenderOwnerID = c.Render.OwnerID
	return cfg
}

// FetcherConfig returns the GitHub archive fetcher configuration.
func (c *Config) FetcherConfig(token string) source.GitHubConfig {
	cfg := source.DefaultGitHubConfig()
	cfg.APIURL = c.GitHub.APIURL
	cfg.ArchiveURL = c.GitHub.ArchiveURL
	cfg.Token = token
	// archives are compressed, so allow some headroom over the site limit
	cfg.MaxArchiveBytes = int64(c.MaxSizeMB*1024*1024) * 4
	return cfg
}

// StatusServerConfig returns the status server configuration.
func (c *Config) StatusServerConfig() status.Config {
	cfg := status.DefaultConfig()
	cfg.Address = c.Status.Addr
	return cfg
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Verbose forces the debug level.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
