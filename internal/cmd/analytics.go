package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/agent"
	"github.com/postpilot/postpilot/internal/core"
	"github.com/postpilot/postpilot/internal/output"
)

var (
	analyticsFormat  string
	analyticsOut     string
	analyticsOutDir  string
	analyticsRefresh bool
	analyticsSince   time.Duration
	analyticsLimit   int
	analyticsHistory int
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show engagement analytics for recent posts",
	Long: `Render engagement metrics for posts published in the lookback
window. With --refresh, current metrics are fetched from the platform
first and a new analytics snapshot is persisted. With --history N, the
last N stored snapshots are listed instead of per-post metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := output.ParseFormat(analyticsFormat)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if analyticsRefresh {
			gates, err := buildGates(cfg)
			if err != nil {
				return err
			}
			client, err := newPlatformClient(cfg, gates.platform)
			if err != nil {
				return err
			}
			composer, err := newComposer(cfg, gates.genai)
			if err != nil {
				return err
			}
			ag, err := agent.New(cfg.Agent, agent.Deps{
				Platform: client,
				Composer: composer,
				Storage:  db,
				Gates:    gates.all(),
			})
			if err != nil {
				return err
			}
			if err := ag.RefreshAnalytics(ctx); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		formatter := output.NewFormatter(format)

		var rendered string
		if analyticsHistory > 0 {
			snapshots, err := db.RecentAnalytics(ctx, analyticsHistory)
			if err != nil {
				return err
			}
			rendered, err = formatter.FormatHistory(snapshots)
			if err != nil {
				return err
			}
		} else {
			posts, err := loadReportPosts(ctx, db, now, analyticsSince, analyticsLimit)
			if err != nil {
				return err
			}
			interactions, err := db.CountInteractionsSince(ctx, now.Add(-analyticsSince))
			if err != nil {
				return err
			}

			report := output.BuildAnalyticsReport(now, posts, interactions)
			rendered, err = formatter.FormatAnalytics(report)
			if err != nil {
				return err
			}
		}

		outPath, outDir, err := resolveOutputTargets(analyticsOut, analyticsOutDir)
		if err != nil {
			return err
		}
		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("analytics.%s", outputExtension(format)))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

// postLister is the slice of the store the analytics command reads posts
// through.
type postLister interface {
	RecentPosts(ctx context.Context, limit int) ([]core.Post, error)
	PostsSince(ctx context.Context, cutoff time.Time, limit int) ([]core.Post, error)
}

// loadReportPosts selects the lookback query: a positive window bounds the
// report to it, zero or below means all recorded posts.
func loadReportPosts(ctx context.Context, db postLister, now time.Time, since time.Duration, limit int) ([]core.Post, error) {
	if since <= 0 {
		return db.RecentPosts(ctx, limit)
	}
	return db.PostsSince(ctx, now.Add(-since), limit)
}

func init() {
	rootCmd.AddCommand(analyticsCmd)

	analyticsCmd.Flags().StringVar(&analyticsFormat, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	analyticsCmd.Flags().StringVar(&analyticsOut, "out", "", "Write output to a file (default stdout)")
	analyticsCmd.Flags().StringVar(&analyticsOutDir, "out-dir", "", "Write output to a directory")
	analyticsCmd.Flags().BoolVar(&analyticsRefresh, "refresh", false, "Fetch fresh metrics from the platform before rendering")
	analyticsCmd.Flags().DurationVar(&analyticsSince, "since", 24*time.Hour, "Lookback window for posts (0 includes all recorded posts)")
	analyticsCmd.Flags().IntVar(&analyticsLimit, "limit", 50, "Maximum posts to include")
	analyticsCmd.Flags().IntVar(&analyticsHistory, "history", 0, "Show the last N stored analytics snapshots instead of per-post metrics")
}
