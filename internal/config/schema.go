package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Seed     SeedConfig     `yaml:"seed"`
	Events   EventsConfig   `yaml:"events"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Paging   PagingConfig   `yaml:"paging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// BaseURL prefixes the href of every entity, e.g. http://catalog.internal:8585
	BaseURL         string   `yaml:"base_url"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins,omitempty"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects the zap level and encoder
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// AuthConfig controls how the caller of an API request is identified
type AuthConfig struct {
	// Enabled requires a bearer token on every API request
	Enabled bool `yaml:"enabled"`
	// PrincipalHeader carries the caller email when auth is disabled
	PrincipalHeader  string   `yaml:"principal_header"`
	DefaultPrincipal string   `yaml:"default_principal"`
	Admins           []string `yaml:"admins,omitempty"`
	TokenTTL         Duration `yaml:"token_ttl"` // 0 = tokens never expire
}

// SeedConfig points at the seed file loaded on start
type SeedConfig struct {
	Path  string `yaml:"path,omitempty"`
	Watch bool   `yaml:"watch"`
}

// EventsConfig sizes the live change event stream
type EventsConfig struct {
	Buffer int `yaml:"buffer"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// PagingConfig bounds list page sizes
type PagingConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
