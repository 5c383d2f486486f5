package cmd

import "github.com/spf13/cobra"

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Manage persisted gate state",
	Long: `Inspect and reset the persisted admission-gate state: remaining
tokens per rate-limit window and circuit breaker status per gate.`,
}

func init() {
	guardCmd.AddCommand(guardListCmd)
	guardCmd.AddCommand(guardResetCmd)
	rootCmd.AddCommand(guardCmd)
}
