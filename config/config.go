// Package config loads the optional trends-cli configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robertmeta/trends-cli/model"
	"github.com/robertmeta/trends-cli/query"
	"gopkg.in/yaml.v3"
)

// Source names.
const (
	SourceAPI = "api"
	SourceRSS = "rss"
)

// Config is the file-level configuration. Command line flags override it.
type Config struct {
	Source   string            `yaml:"source"`
	Endpoint string            `yaml:"endpoint"`
	FeedURL  string            `yaml:"feed_url"`
	DB       string            `yaml:"db"`
	Timeout  int               `yaml:"timeout"` // seconds
	Refresh  RefreshConfig     `yaml:"refresh"`
	Mode     string            `yaml:"mode"`
	Defaults map[string]string `yaml:"defaults"`
}

// RefreshConfig configures the watch command.
type RefreshConfig struct {
	Interval int `yaml:"interval"` // seconds
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source:   SourceAPI,
		Endpoint: "http://127.0.0.1:8000",
		Timeout:  30,
		Refresh:  RefreshConfig{Interval: 60},
		Mode:     model.ModeFiltered.String(),
	}
}

// Load reads the configuration file at path over the built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration and fills in zero values.
func (c *Config) Validate() error {
	switch c.Source {
	case "":
		c.Source = SourceAPI
	case SourceAPI, SourceRSS:
	default:
		return fmt.Errorf("invalid source: %q (expected %s or %s)", c.Source, SourceAPI, SourceRSS)
	}

	if c.Source == SourceAPI {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
		}
	}

	if c.Timeout <= 0 {
		c.Timeout = 30
	}

	if c.Refresh.Interval <= 0 {
		c.Refresh.Interval = 60
	}

	if _, err := c.Query(); err != nil {
		return fmt.Errorf("invalid defaults: %w", err)
	}

	return nil
}

// Query builds the session start query from the configured defaults.
func (c *Config) Query() (model.Query, error) {
	mode, ok := model.ParseMode(c.Mode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidMode, c.Mode)
	}
	return query.Build(model.DefaultQuery(), c.Defaults, mode)
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RefreshInterval returns the auto-refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.Interval) * time.Second
}

// Save writes the configuration file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
