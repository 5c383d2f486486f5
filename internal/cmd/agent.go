package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/postpilot/postpilot/internal/agent"
	errwrap "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/internal/metrics"
	"github.com/postpilot/postpilot/internal/observability"
	"github.com/postpilot/postpilot/internal/server"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the autonomous posting loop",
	Long: `Run the agent loop: scheduled posts and threads, engagement passes,
analytics refresh and health reporting. The HTTP server (health probes,
/guards, /metrics) runs alongside the loop unless health is disabled.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		observability.InitAgentLogger(appName, cfg.Logging.Level)
		logger := observability.AgentLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appName, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
			metrics.SetServerStartTime(time.Now().Unix())
		}

		gates, err := buildGates(cfg)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "open store failed")
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		client, err := newPlatformClient(cfg, gates.platform)
		if err != nil {
			return err
		}
		composer, err := newComposer(cfg, gates.genai)
		if err != nil {
			return err
		}
		topics, err := newTrendsClient(cfg, gates.trends)
		if err != nil {
			return err
		}

		ag, err := agent.New(cfg.Agent, agent.Deps{
			Platform: client,
			Composer: composer,
			Topics:   topics,
			Storage:  db,
			Gates:    gates.all(),
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// HTTP server for probes, gate status and metrics scraping.
		var srv *server.Server
		if cfg.Health.Enabled {
			hm := server.NewHealthManager(versionInfo.Version)
			hm.RegisterChecker("store", db)
			hm.RegisterChecker("platform", server.CheckFunc(client.CheckHealth))

			srv = server.New(cfg.Server, hm, gates.all())
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", zap.Error(err))
					cancel()
				}
			}()
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		signals.OnShutdown(func(sctx context.Context) error {
			logger.Info("Shutting down agent...")
			cancel()
			if srv != nil {
				shutdownCtx, sc := context.WithTimeout(sctx, shutdownTimeout)
				defer sc()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return errwrap.WrapInternal(sctx, err, "server shutdown failed")
				}
			}
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		go func() {
			if err := signals.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Signal handler error", zap.Error(err))
			}
		}()

		if err := ag.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return errwrap.WrapInternal(ctx, err, "agent loop failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}
