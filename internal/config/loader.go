// Package config provides centralized configuration management for PostPilot.
// Settings are merged from three layers: built-in defaults, the user config
// file (postpilot.yaml) and POSTPILOT_* environment variables, then decoded
// into typed structs.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/postpilot/postpilot/internal/guard"
)

const appName = "postpilot"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Load decodes the merged viper settings into a typed Config, fills in
// default guard gates and validates every gate's admission settings.
// Malformed guard config is a startup error, never a silent fallback.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
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
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if cfg.Guards == nil {
		cfg.Guards = map[string]guard.Config{}
	}
	for name, gc := range DefaultGuards() {
		if _, ok := cfg.Guards[name]; !ok {
			cfg.Guards[name] = gc
		}
	}
	for name, gc := range cfg.Guards {
		if _, err := guard.New(name, gc); err != nil {
			return nil, fmt.Errorf("guard %q: %w", name, err)
		}
	}

	setConfig(cfg)
	return cfg, nil
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

// ApplyVault fills credentials left empty by config and environment with
// values from the credential vault. Explicit config always wins.
func ApplyVault(cfg *Config, creds map[string]string) {
	if cfg == nil || len(creds) == 0 {
		return
	}

	if strings.TrimSpace(cfg.Platform.BearerToken) == "" {
		cfg.Platform.BearerToken = creds["platform_bearer_token"]
	}
	if strings.TrimSpace(cfg.GenAI.APIKey) == "" {
		cfg.GenAI.APIKey = creds["genai_api_key"]
	}
	if strings.TrimSpace(cfg.Trends.APIKey) == "" {
		cfg.Trends.APIKey = creds["trends_api_key"]
	}
}

// SetDefaults registers default configuration values on the given viper
// instance. Called before Load so the file and environment can override.
func SetDefaults(v *viper.Viper) {
	if v == nil {
		v = viper.GetViper()
	}

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "simple")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Platform defaults
	v.SetDefault("platform.base_url", "https://api.x.com/2")
	v.SetDefault("platform.timeout", "30s")

	// Generation defaults
	v.SetDefault("genai.base_url", "https://api.x.ai/v1")
	v.SetDefault("genai.model", "grok-2-latest")
	v.SetDefault("genai.image_model", "grok-2-image")
	v.SetDefault("genai.timeout", "60s")
	v.SetDefault("genai.max_tokens", 512)
	v.SetDefault("genai.temperature", 0.7)
	v.SetDefault("genai.images.enabled", false)
	v.SetDefault("genai.images.thumb_width", 512)

	// Trends defaults
	v.SetDefault("trends.enabled", false)
	v.SetDefault("trends.base_url", "https://serpapi.com/search.json")
	v.SetDefault("trends.geo", "US")
	v.SetDefault("trends.timeout", "15s")
	v.SetDefault("trends.cache_ttl", "1h")
	v.SetDefault("trends.fallback", []string{"AI", "technology", "open source"})

	// Cache defaults
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.default_ttl", "5m")

	// Vault defaults
	v.SetDefault("vault.dir", DefaultDataDir())

	// Agent defaults
	v.SetDefault("agent.post_hours", []int{0, 6, 12, 18})
	v.SetDefault("agent.thread_hours", []int{0, 6})
	v.SetDefault("agent.max_interactions", 5)
	v.SetDefault("agent.interact_every", "90m")
	v.SetDefault("agent.analytics_every", "6h")
	v.SetDefault("agent.health_every", "15m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	// Debug defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(appName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appName + ".db"
	}
	return filepath.Join(dataDir, appName+".db")
}
