// Package config loads the CLI configuration from YAML with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// ErrMissingAPIKey is returned when a command needs the API but no key is
// configured.
var ErrMissingAPIKey = errors.New("API key not set: export " + core.APIKeyEnvVar + " or set api.key in the config file")

// Config represents the application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when no key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// APIConfig holds the Likes API client settings.
type APIConfig struct {
	BaseURL         string                   `yaml:"base_url"`
	Key             string                   `yaml:"key"`
	Timeout         time.Duration            `yaml:"timeout"`
	DefaultCooldown time.Duration            `yaml:"default_cooldown"`
	Cooldowns       map[string]time.Duration `yaml:"cooldowns"`
	RateLimitWait   time.Duration            `yaml:"rate_limit_wait"`
	MaxAttempts     int                      `yaml:"max_attempts"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.DefaultCooldown, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimitWait, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.Cooldowns, validation.Each(validation.Min(time.Duration(0)))),
	); err != nil {
		return err
	}
	for path := range c.Cooldowns {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("cooldowns: path %q must start with /", path)
		}
	}
	return nil
}

// ClientOptions converts the section into api.ClientOptions.
func (c *APIConfig) ClientOptions() api.ClientOptions {
	cooldowns := make(map[string]time.Duration, len(c.Cooldowns))
	for path, d := range c.Cooldowns {
		cooldowns[path] = d
	}
	return api.ClientOptions{
		BaseURL:         c.BaseURL,
		APIKey:          c.Key,
		Timeout:         c.Timeout,
		DefaultCooldown: c.DefaultCooldown,
		Cooldowns:       cooldowns,
		RateLimitWait:   c.RateLimitWait,
		MaxAttempts:     c.MaxAttempts,
	}
}

// CacheConfig holds the cache location and frozen window.
type CacheConfig struct {
	Dir        string `yaml:"dir"`
	FrozenDays int    `yaml:"frozen_days"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.FrozenDays, validation.Min(0), validation.Max(365)),
	)
}

// LogConfig holds the log level.
type LogConfig struct {
	Level slog.Level `yaml:"level"`
}

// MetricsConfig holds the optional textfile export path.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	opts := api.DefaultClientOptions()
	return &Config{
		API: APIConfig{
			BaseURL:         opts.BaseURL,
			Timeout:         opts.Timeout,
			DefaultCooldown: opts.DefaultCooldown,
			Cooldowns:       opts.Cooldowns,
			RateLimitWait:   opts.RateLimitWait,
			MaxAttempts:     opts.MaxAttempts,
		},
		Cache: CacheConfig{
			Dir:        core.CacheRoot(),
			FrozenDays: core.FrozenDays,
		},
		Log: LogConfig{
			Level: slog.LevelWarn,
		},
	}
}

// Load reads the config file at path over the defaults. An empty path means
// the default location, which may be missing; an explicit path must exist.
// LIKES_API_KEY fills an empty api.key.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = core.ConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv(core.APIKeyEnvVar)
	}
	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
