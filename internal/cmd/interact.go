package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/agent"
)

var interactMax int

var interactCmd = &cobra.Command{
	Use:   "interact",
	Short: "Run one engagement pass over recent posts",
	Long: `Search recent posts matching the configured query and engage with
them: every found post gets a like, every third a repost, and the first
a generated reply. Interactions are recorded in the local store.`,
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

		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
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

		agentCfg := cfg.Agent
		if interactMax > 0 {
			agentCfg.MaxInteractions = interactMax
		}

		ag, err := agent.New(agentCfg, agent.Deps{
			Platform: client,
			Composer: composer,
			Storage:  db,
			Gates:    gates.all(),
		})
		if err != nil {
			return err
		}

		if err := ag.Interact(ctx); err != nil {
			return err
		}

		fmt.Println("Interaction pass complete.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interactCmd)

	interactCmd.Flags().IntVar(&interactMax, "max", 0, "override the configured interaction cap for this run")
}
