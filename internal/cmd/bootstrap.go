package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/postpilot/postpilot/internal/cache"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/core/store"
	"github.com/postpilot/postpilot/internal/genai"
	"github.com/postpilot/postpilot/internal/guard"
	"github.com/postpilot/postpilot/internal/observability"
	"github.com/postpilot/postpilot/internal/platform/x"
	"github.com/postpilot/postpilot/internal/trends"
	"github.com/postpilot/postpilot/internal/vault"
)

// loadConfig decodes the merged settings and overlays vault credentials for
// anything left empty. A missing or unreadable vault is not fatal; explicit
// config and environment always win.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	v, err := vault.Open(cfg.Vault.Dir)
	if err != nil {
		if observability.CLILogger != nil {
			observability.CLILogger.Debug("Credential vault unavailable", zap.Error(err))
		}
		return cfg, nil
	}

	creds, err := v.Load()
	if err != nil {
		if observability.CLILogger != nil {
			observability.CLILogger.Debug("Credential vault unreadable", zap.Error(err))
		}
		return cfg, nil
	}

	config.ApplyVault(cfg, creds)
	return cfg, nil
}

// gateSet holds the per-service admission gates.
type gateSet struct {
	platform *guard.Gate
	genai    *guard.Gate
	trends   *guard.Gate
}

func (g gateSet) all() []*guard.Gate {
	return []*guard.Gate{g.platform, g.genai, g.trends}
}

// buildGates constructs one gate per external service from the validated
// guard config. The platform gate classifies retryability from API status
// codes.
func buildGates(cfg *config.Config) (gateSet, error) {
	var gates gateSet

	platformGate, err := guard.New("platform", cfg.Guards["platform"], guard.WithRetryable(x.Retryable))
	if err != nil {
		return gates, fmt.Errorf("platform gate: %w", err)
	}

	genaiGate, err := guard.New("genai", cfg.Guards["genai"])
	if err != nil {
		return gates, fmt.Errorf("genai gate: %w", err)
	}

	trendsGate, err := guard.New("trends", cfg.Guards["trends"])
	if err != nil {
		return gates, fmt.Errorf("trends gate: %w", err)
	}

	gates.platform = platformGate
	gates.genai = genaiGate
	gates.trends = trendsGate
	return gates, nil
}

// openStore opens and migrates the database using the merged config.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func newPlatformClient(cfg *config.Config, gate *guard.Gate) (*x.Client, error) {
	return x.NewClient(x.Config{
		BaseURL:     cfg.Platform.BaseURL,
		BearerToken: cfg.Platform.BearerToken,
		UserID:      cfg.Platform.UserID,
		Timeout:     cfg.Platform.Timeout,
	}, gate)
}

func newComposer(cfg *config.Config, gate *guard.Gate) (*genai.Composer, error) {
	driver := genai.NewXAIClient(cfg.GenAI)
	return genai.NewComposer(driver, gate, cfg.GenAI)
}

func newTrendsClient(cfg *config.Config, gate *guard.Gate) (*trends.Client, error) {
	topicCache := cache.New(cfg.Cache.MaxEntries, cfg.Cache.DefaultTTL)
	return trends.NewClient(cfg.Trends, gate, topicCache)
}
