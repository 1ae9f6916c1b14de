// Package config provides configuration management for the metadata catalog.
//
// Config file locations (priority order):
//  1. $METACATALOG_CONFIG
//  2. ./metacatalog.yaml
//  3. $XDG_CONFIG_HOME/metacatalog/config.yaml
//  4. ~/.config/metacatalog/config.yaml
//  5. /etc/metacatalog/config.yaml
//
// Values read from the file are then overridden by METACATALOG_* environment
// variables, see applyEnv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values
const (
	EnvAddr           = "METACATALOG_ADDR"
	EnvBaseURL        = "METACATALOG_BASE_URL"
	EnvDatabasePath   = "METACATALOG_DB_PATH"
	EnvLogLevel       = "METACATALOG_LOG_LEVEL"
	EnvLogFormat      = "METACATALOG_LOG_FORMAT"
	EnvAuthEnabled    = "METACATALOG_AUTH_ENABLED"
	EnvSeedPath       = "METACATALOG_SEED_PATH"
	EnvSeedWatch      = "METACATALOG_SEED_WATCH"
	EnvMetricsEnabled = "METACATALOG_METRICS_ENABLED"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - defaults plus environment
		cfg := DefaultConfig()
		if err := cfg.applyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", cfg.Validate()
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	// Keys missing from the file keep their default
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":8585",
			BaseURL:         "http://localhost:8585",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{Path: "./metacatalog.db"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{
			PrincipalHeader:  "X-Auth-Params-Email",
			DefaultPrincipal: "anonymous",
		},
		Events:  EventsConfig{Buffer: 256},
		Metrics: MetricsConfig{Enabled: true, Namespace: "metacatalog"},
		Paging:  PagingConfig{DefaultLimit: 10, MaxLimit: 1000},
	}
}

// applyDefaults fills in values a config file explicitly left empty
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Database.Path == "" {
		c.Database.Path = defaults.Database.Path
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if c.Auth.PrincipalHeader == "" {
		c.Auth.PrincipalHeader = defaults.Auth.PrincipalHeader
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = defaults.Events.Buffer
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaults.Metrics.Namespace
	}
	if c.Paging.DefaultLimit <= 0 {
		c.Paging.DefaultLimit = defaults.Paging.DefaultLimit
	}
	if c.Paging.MaxLimit <= 0 {
		c.Paging.MaxLimit = defaults.Paging.MaxLimit
	}
}

// applyEnv overrides file values with METACATALOG_* environment variables
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		EnvAddr:         &c.Server.Addr,
		EnvBaseURL:      &c.Server.BaseURL,
		EnvDatabasePath: &c.Database.Path,
		EnvLogLevel:     &c.Logging.Level,
		EnvLogFormat:    &c.Logging.Format,
		EnvSeedPath:     &c.Seed.Path,
	}
	for env, field := range strs {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}

	bools := map[string]*bool{
		EnvAuthEnabled:    &c.Auth.Enabled,
		EnvSeedWatch:      &c.Seed.Watch,
		EnvMetricsEnabled: &c.Metrics.Enabled,
	}
	for env, field := range bools {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*field = b
	}
	return nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}
	if c.Paging.DefaultLimit > c.Paging.MaxLimit {
		return fmt.Errorf("paging.default_limit %d exceeds paging.max_limit %d",
			c.Paging.DefaultLimit, c.Paging.MaxLimit)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative")
	}
	return nil
}

// IsAdmin reports whether principal is listed in auth.admins
func (c *Config) IsAdmin(principal string) bool {
	for _, admin := range c.Auth.Admins {
		if admin == principal {
			return true
		}
	}
	return false
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Base URL: %s\n", c.Server.Addr, c.Server.BaseURL)
	summary += fmt.Sprintf("Database: %s, Auth: %t\n", c.Database.Path, c.Auth.Enabled)
	if c.Seed.Path != "" {
		summary += fmt.Sprintf("Seed: %s (watch: %t)", c.Seed.Path, c.Seed.Watch)
	} else {
		summary += "Seed: none"
	}
	return summary
}
