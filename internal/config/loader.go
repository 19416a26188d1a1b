// Package config provides centralized configuration management for searchdemo.
// Defaults are registered on a viper instance, which the root command also
// feeds the user config file, SEARCHDEMO_* environment variables and bound
// flags; Load decodes the merged result into a typed Config.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cymbal-labs/searchdemo/internal/state"
)

const (
	// DefaultBackendURL is used when backend.base_url is not configured.
	DefaultBackendURL = "http://localhost:8000"

	defaultConfigName = "searchdemo"
)

var (
	// appConfig holds the most recently loaded configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	// Zero read timeout: the live channel reads for the life of a tab.
	v.SetDefault("server.read_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Backend defaults
	v.SetDefault("backend.base_url", DefaultBackendURL)
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("backend.rate_limit", 0.0)

	v.SetDefault("search.response_policy", string(state.LastWriteWins))
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("ui.title", "Search Demo")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:8080"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)
}

// Load decodes v into a Config, validates it and records it as the current
// configuration. This function is safe to call multiple times (e.g., for
// config reload).
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	setConfig(cfg)

	return cfg, nil
}

func (c *Config) normalize() error {
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendURL
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid backend.base_url %q: expected an http(s) origin", c.Backend.BaseURL)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("invalid backend.rate_limit %v: must not be negative", c.Backend.RateLimit)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("invalid backend.timeout %s: must not be negative", c.Backend.Timeout)
	}

	policy := strings.ToLower(strings.TrimSpace(c.Search.ResponsePolicy))
	switch state.ResponsePolicy(policy) {
	case "":
		c.Search.ResponsePolicy = string(state.LastWriteWins)
	case state.LastWriteWins, state.LatestSubmit:
		c.Search.ResponsePolicy = policy
	default:
		return fmt.Errorf("invalid search.response_policy %q: expected %s or %s",
			c.Search.ResponsePolicy, state.LastWriteWins, state.LatestSubmit)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Session.IdleTimeout <= 0 {
		c.Session.IdleTimeout = 30 * time.Minute
	}

	origins := c.CORS.AllowedOrigins[:0]
	for _, origin := range c.CORS.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.CORS.AllowedOrigins = origins

	return nil
}

// Policy returns the configured response policy.
func (c *Config) Policy() state.ResponsePolicy {
	return state.ParseResponsePolicy(c.Search.ResponsePolicy)
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG-compliant config directory for configName.
func DefaultConfigDir(configName string) string {
	if strings.TrimSpace(configName) == "" {
		configName = defaultConfigName
	}
	return gfconfig.GetAppConfigDir(configName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath(configName string) string {
	dir := DefaultConfigDir(configName)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
