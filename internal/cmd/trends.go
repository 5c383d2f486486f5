package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/output"
	"github.com/postpilot/postpilot/internal/trends"
)

var trendsFormat string

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show current trending topics",
	Long: `Fetch trending topics from the configured source. When the source
is disabled or failing, the configured fallback topics are shown instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := output.ParseFormat(trendsFormat)
		if err != nil {
			return err
		}
		if format == output.FormatMarkdown {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gates, err := buildGates(cfg)
		if err != nil {
			return err
		}

		client, err := newTrendsClient(cfg, gates.trends)
		if err != nil {
			return err
		}

		topics, err := client.TopicsOrFallback(ctx)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: trend lookup failed (%v), showing fallback topics\n", err)
		}
		hashtags := trends.Hashtags(topics)

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(map[string]any{
				"topics":   topics,
				"hashtags": hashtags,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		}

		fmt.Println("Trending topics:")
		for _, topic := range topics {
			fmt.Printf("  %s\n", topic)
		}
		fmt.Printf("\nHashtags: %s\n", strings.Join(hashtags, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trendsCmd)

	trendsCmd.Flags().StringVar(&trendsFormat, "output-format", string(output.FormatTable), "Output format: table|json")
}
