package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/agent"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/core"
)

var (
	postThread bool
	postText   string
	postDryRun bool
)

// staticTopics pins the posting topic from the command line.
type staticTopics []string

func (s staticTopics) TopicsOrFallback(_ context.Context) ([]string, error) {
	return s, nil
}

var postCmd = &cobra.Command{
	Use:   "post [topic]",
	Short: "Compose and publish a post or thread",
	Long: `Compose a post (or thread with --thread) about the given topic and
publish it. Without a topic the trending-topics source picks one. Use
--dry-run to preview the composed text without publishing, or --text to
publish exact text and skip generation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gates, err := buildGates(cfg)
		if err != nil {
			return err
		}

		if postText != "" {
			return publishExactText(ctx, cfg, gates, postText)
		}

		composer, err := newComposer(cfg, gates.genai)
		if err != nil {
			return err
		}

		topics, agentCfg := resolveTopics(cfg, gates, args)

		if postDryRun {
			return previewPost(ctx, composer, topics)
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		client, err := newPlatformClient(cfg, gates.platform)
		if err != nil {
			return err
		}

		ag, err := agent.New(agentCfg, agent.Deps{
			Platform: client,
			Composer: composer,
			Topics:   topics,
			Storage:  db,
			Gates:    gates.all(),
		})
		if err != nil {
			return err
		}

		if postThread {
			if err := ag.PublishThread(ctx); err != nil {
				return err
			}
			fmt.Println("Thread published.")
			return nil
		}

		if err := ag.PublishPost(ctx); err != nil {
			return err
		}
		fmt.Println("Post published.")
		return nil
	},
}

// resolveTopics picks the topic source: an explicit argument pins the topic,
// otherwise trending topics (with configured fallback) choose one.
func resolveTopics(cfg *config.Config, gates gateSet, args []string) (agent.TopicSource, config.AgentConfig) {
	agentCfg := cfg.Agent

	if len(args) == 1 && args[0] != "" {
		// Explicit topic wins over the configured rotation.
		agentCfg.Topics = nil
		return staticTopics{args[0]}, agentCfg
	}

	source, err := newTrendsClient(cfg, gates.trends)
	if err != nil {
		return nil, agentCfg
	}
	return source, agentCfg
}

func previewPost(ctx context.Context, composer agent.Composer, topics agent.TopicSource) error {
	topic := "technology"
	if topics != nil {
		if candidates, err := topics.TopicsOrFallback(ctx); err == nil && len(candidates) > 0 {
			topic = candidates[0]
		}
	}

	if postThread {
		parts, err := composer.Thread(ctx, topic)
		if err != nil {
			return err
		}
		for i, part := range parts {
			fmt.Printf("--- part %d/%d ---\n%s\n", i+1, len(parts), part)
		}
		return nil
	}

	text, err := composer.Tweet(ctx, topic)
	if err != nil {
		return err
	}
	tags, err := composer.Hashtags(ctx, text)
	if err == nil && len(tags) > 0 {
		fmt.Printf("%s\n\nhashtags: %v\n", text, tags)
		return nil
	}
	fmt.Println(text)
	return nil
}

func publishExactText(ctx context.Context, cfg *config.Config, gates gateSet, text string) error {
	text = core.SanitizeText(text, core.MaxPostLength)
	if text == "" {
		return fmt.Errorf("post text is empty after sanitization")
	}

	if postDryRun {
		fmt.Println(text)
		return nil
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	client, err := newPlatformClient(cfg, gates.platform)
	if err != nil {
		return err
	}

	postID, err := client.CreatePost(ctx, text, "", nil)
	if err != nil {
		return err
	}

	if err := db.InsertPost(ctx, core.Post{PostID: postID, Text: text, CreatedAt: time.Now().UTC()}); err != nil {
		return err
	}

	fmt.Printf("Post published: %s\n", postID)
	return nil
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().BoolVar(&postThread, "thread", false, "publish a thread instead of a single post")
	postCmd.Flags().StringVar(&postText, "text", "", "publish this exact text, skipping generation")
	postCmd.Flags().BoolVar(&postDryRun, "dry-run", false, "compose but do not publish")
}
