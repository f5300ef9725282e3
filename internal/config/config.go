package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Domain match modes
const (
	MatchSubstring = "substring"
	MatchHost      = "host"
)

// EnvPrefix is prepended to every environment variable override
const EnvPrefix = "LINKGRAPH"

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL            string `mapstructure:"seed_url" json:"seed_url"`
	Domain             string `mapstructure:"domain" json:"domain"`
	MatchMode          string `mapstructure:"match_mode" json:"match_mode"`
	MinCrawls          int    `mapstructure:"min_crawls" json:"min_crawls"`
	RequestTimeoutMs   int    `mapstructure:"request_timeout_ms" json:"request_timeout_ms"`
	UserAgent          string `mapstructure:"user_agent" json:"user_agent"`
	OutputPath         string `mapstructure:"output_path" json:"output_path"`
	DBPath             string `mapstructure:"db_path" json:"db_path"`
	MetricsPath        string `mapstructure:"metrics_path" json:"metrics_path"`
	MetricsAddr        string `mapstructure:"metrics_addr" json:"metrics_addr"`
	ProgressIntervalMs int    `mapstructure:"progress_interval_ms" json:"progress_interval_ms"`
}

// Defaults returns the configuration used when nothing else is specified
func Defaults() Config {
	return Config{
		SeedURL:            "http://www.caltech.edu/",
		Domain:             "caltech.edu",
		MatchMode:          MatchSubstring,
		MinCrawls:          75,
		RequestTimeoutMs:   2000,
		UserAgent:          "Mozilla/5.0",
		OutputPath:         "network.csv",
		ProgressIntervalMs: 10000,
	}
}

// NewViper returns a viper instance with defaults and environment overrides registered
func NewViper() *viper.Viper {
	v := viper.New()
	d := Defaults()

	v.SetDefault("seed_url", d.SeedURL)
	v.SetDefault("domain", d.Domain)
	v.SetDefault("match_mode", d.MatchMode)
	v.SetDefault("min_crawls", d.MinCrawls)
	v.SetDefault("request_timeout_ms", d.RequestTimeoutMs)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("output_path", d.OutputPath)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("metrics_path", d.MetricsPath)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("progress_interval_ms", d.ProgressIntervalMs)

	// e.g. LINKGRAPH_MIN_CRAWLS=10
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file at path into v, then decodes,
// defaults and validates the merged configuration
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// RequestTimeout returns the per-fetch timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ProgressInterval returns the period of the progress log line
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMs) * time.Millisecond
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.SeedURL == "" {
		cfg.SeedURL = d.SeedURL
	}
	if cfg.Domain == "" {
		cfg.Domain = d.Domain
	}
	if cfg.MatchMode == "" {
		cfg.MatchMode = d.MatchMode
	}
	if cfg.MinCrawls == 0 {
		cfg.MinCrawls = d.MinCrawls
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = d.RequestTimeoutMs
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = d.UserAgent
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = d.OutputPath
	}
	if cfg.ProgressIntervalMs == 0 {
		cfg.ProgressIntervalMs = d.ProgressIntervalMs
	}
	cfg.MatchMode = strings.ToLower(cfg.MatchMode)
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	seed, err := url.Parse(cfg.SeedURL)
	if err != nil {
		return fmt.Errorf("seed_url is not a valid url: %w", err)
	}
	if (seed.Scheme != "http" && seed.Scheme != "https") || seed.Host == "" {
		return fmt.Errorf("seed_url must be an absolute http(s) url, got %q", cfg.SeedURL)
	}
	if strings.TrimSpace(cfg.Domain) == "" {
		return errors.New("domain is required")
	}
	if cfg.MatchMode != MatchSubstring && cfg.MatchMode != MatchHost {
		return fmt.Errorf("match_mode must be %q or %q, got %q", MatchSubstring, MatchHost, cfg.MatchMode)
	}
	if cfg.MinCrawls < 1 {
		return errors.New("min_crawls must be >= 1")
	}
	if cfg.RequestTimeoutMs < 100 {
		return errors.New("request_timeout_ms must be >= 100")
	}
	if cfg.ProgressIntervalMs < 0 {
		return errors.New("progress_interval_ms must be >= 0")
	}
	return nil
}
