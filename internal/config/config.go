package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values come from, in increasing precedence: built-in defaults, the user
// config file ($XDG_CONFIG_HOME/searchdemo/config.yaml), SEARCHDEMO_*
// environment variables and command line flags.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Search  SearchConfig  `mapstructure:"search"`
	Session SessionConfig `mapstructure:"session"`
	UI      UIConfig      `mapstructure:"ui"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig describes the search service the gateway talks to.
type BackendConfig struct {
	// BaseURL is the backend origin; /search and /ping are joined onto it.
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds a single backend call. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// RateLimit paces outbound calls in requests per second. Zero disables pacing.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// SearchConfig controls how search results are committed.
type SearchConfig struct {
	// ResponsePolicy is "last-write-wins" or "latest-submit".
	ResponsePolicy string `mapstructure:"response_policy"`
}

// SessionConfig controls per-tab session lifetime.
type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// UIConfig holds presentation settings for the web page.
type UIConfig struct {
	Title string `mapstructure:"title"`
}

// CORSConfig lists the origins allowed to call /api and open /ws.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}
