// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in that order. Command-line flags are applied on
// top by the cli package.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatBoth = "both"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	DatabaseURL     string        `yaml:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TokenTTL of zero issues tokens without an expiry.
	TokenTTL     time.Duration `yaml:"token_ttl"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	MaxPageLimit int           `yaml:"max_page_limit"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DatabaseURL:     "conduit.db",
		BcryptCost:      12,
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		LogFormat:       FormatBoth,
		MaxPageLimit:    100,
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Addr = ":" + port
	}
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)

	var errs []error
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	envDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	envInt("MAX_OPEN_CONNS", &c.MaxOpenConns)
	envInt("BCRYPT_COST", &c.BcryptCost)
	envInt("MAX_PAGE_LIMIT", &c.MaxPageLimit)
	envDuration("REQUEST_TIMEOUT", &c.RequestTimeout)
	envDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	envDuration("TOKEN_TTL", &c.TokenTTL)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database url must not be empty"))
	}
	if c.MaxOpenConns < 0 {
		errs = append(errs, fmt.Errorf("max open conns must not be negative, got %d", c.MaxOpenConns))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("bcrypt cost must be between 4 and 14, got %d", c.BcryptCost))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, errors.New("token ttl must not be negative"))
	}
	if c.MaxPageLimit < 1 {
		errs = append(errs, fmt.Errorf("max page limit must be at least 1, got %d", c.MaxPageLimit))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case FormatText, FormatJSON, FormatBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
