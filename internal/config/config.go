package config

import (
	"time"

	"github.com/postpilot/postpilot/internal/genai"
	"github.com/postpilot/postpilot/internal/guard"
)

// Config represents the complete application configuration, merged from
// defaults, the user config file and POSTPILOT_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Platform PlatformConfig `mapstructure:"platform"`
	GenAI    genai.Config   `mapstructure:"genai"`
	Trends   TrendsConfig   `mapstructure:"trends"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`

	// Guards maps a gate name to its admission settings. Missing gates fall
	// back to DefaultGuards; malformed gates fail loudly at startup.
	Guards map[string]guard.Config `mapstructure:"guards"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// PlatformConfig contains X API client configuration.
//
// The bearer token may come from the vault instead of config; the loader
// overlays vault credentials when the explicit value is empty.
type PlatformConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	BearerToken string        `mapstructure:"bearer_token"`
	UserID      string        `mapstructure:"user_id"`
	Handle      string        `mapstructure:"handle"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// TrendsConfig contains SerpAPI trending-topics configuration.
type TrendsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Geo      string        `mapstructure:"geo"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Fallback topics used when the trends source is disabled or failing.
	Fallback []string `mapstructure:"fallback"`
}

// CacheConfig contains in-process cache sizing.
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// VaultConfig locates the encrypted credential store.
type VaultConfig struct {
	Dir string `mapstructure:"dir"`
}

// AgentConfig drives the scheduler loop.
type AgentConfig struct {
	Topics []string `mapstructure:"topics"`

	// PostHours are the local hours at which the posting job fires.
	// ThreadHours is the subset that publishes threads instead of
	// single posts.
	PostHours   []int `mapstructure:"post_hours"`
	ThreadHours []int `mapstructure:"thread_hours"`

	SearchQuery     string        `mapstructure:"search_query"`
	MaxInteractions int           `mapstructure:"max_interactions"`
	InteractEvery   time.Duration `mapstructure:"interact_every"`
	AnalyticsEvery  time.Duration `mapstructure:"analytics_every"`
	HealthEvery     time.Duration `mapstructure:"health_every"`
}

// LoggingConfig contains logging configuration.
// Profile selects the gofulmen logging complexity level:
// SIMPLE for CLI runs, STRUCTURED for the agent and server.
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
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// DefaultGuards returns the built-in gate settings. One gate exists per
// external service; all endpoints of a service draw from that service's
// quota.
func DefaultGuards() map[string]guard.Config {
	return map[string]guard.Config{
		"platform": {
			Windows: []guard.Window{
				{Name: "15m", MaxRequests: 50, Period: 15 * time.Minute},
				{Name: "24h", MaxRequests: 500, Period: 24 * time.Hour},
			},
			FailureThreshold: 5,
			RecoveryTimeout:  60 * time.Second,
			Retry: guard.RetryPolicy{
				MaxRetries:    guard.Int(3),
				InitialDelay:  time.Second,
				MaxDelay:      60 * time.Second,
				BackoffFactor: guard.Float64(2),
			},
		},
		"genai": {
			Windows: []guard.Window{
				{Name: "1m", MaxRequests: 10, Period: time.Minute},
				{Name: "1h", MaxRequests: 200, Period: time.Hour},
			},
			FailureThreshold: 5,
			RecoveryTimeout:  60 * time.Second,
			Retry: guard.RetryPolicy{
				MaxRetries:    guard.Int(3),
				InitialDelay:  time.Second,
				MaxDelay:      60 * time.Second,
				BackoffFactor: guard.Float64(2),
			},
		},
		"trends": {
			Windows: []guard.Window{
				{Name: "1h", MaxRequests: 20, Period: time.Hour},
			},
			FailureThreshold: 3,
			RecoveryTimeout:  5 * time.Minute,
			Retry: guard.RetryPolicy{
				MaxRetries:    guard.Int(2),
				InitialDelay:  2 * time.Second,
				MaxDelay:      30 * time.Second,
				BackoffFactor: guard.Float64(2),
			},
		},
	}
}
