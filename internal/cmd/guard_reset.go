package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/core/store"
	"github.com/postpilot/postpilot/internal/output"
)

var (
	guardResetAll    bool
	guardResetGate   string
	guardResetPrefix string
	guardResetYes    bool
	guardResetDryRun bool
	guardResetFormat string
	guardResetOut    string
	guardResetOutDir string
)

var guardResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored gate state",
	Long: `Delete persisted gate state so the next agent run starts from full
quota with a closed breaker. This only clears stored snapshots; a running
agent keeps its in-memory state until restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(guardResetFormat)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		query := store.GuardQuery{
			All:    guardResetAll,
			Gate:   strings.TrimSpace(guardResetGate),
			Prefix: strings.TrimSpace(guardResetPrefix),
		}
		if err := query.Validate(); err != nil {
			return err
		}

		if query.All && !guardResetYes && !guardResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.CountGuardStates(cmd.Context(), query)
		if err != nil {
			return err
		}

		outPath, outDir, err := resolveOutputTargets(guardResetOut, guardResetOutDir)
		if err != nil {
			return err
		}
		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("guard.reset.%s", outputExtension(format)))
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if guardResetDryRun {
			return writeGuardResetResult(format, sink.writer, matched, 0, true)
		}

		deleted, err := db.ResetGuardStates(cmd.Context(), query)
		if err != nil {
			return err
		}

		return writeGuardResetResult(format, sink.writer, matched, deleted, false)
	},
}

func writeGuardResetResult(format output.Format, w io.Writer, matched int, deleted int64, dryRun bool) error {
	result := map[string]any{
		"matched": matched,
		"deleted": deleted,
		"dry_run": dryRun,
	}

	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d gate state entr(ies)\n", matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d gate state entr(ies)\n", deleted, matched)
	return err
}

func init() {
	guardResetCmd.Flags().BoolVar(&guardResetAll, "all", false, "Reset all gates")
	guardResetCmd.Flags().StringVar(&guardResetGate, "gate", "", "Reset a single gate (exact match)")
	guardResetCmd.Flags().StringVar(&guardResetPrefix, "prefix", "", "Reset gates with matching prefix")
	guardResetCmd.Flags().BoolVar(&guardResetYes, "yes", false, "Confirm destructive reset")
	guardResetCmd.Flags().BoolVar(&guardResetDryRun, "dry-run", false, "Show what would be deleted")
	guardResetCmd.Flags().StringVar(&guardResetFormat, "output-format", string(output.FormatTable), "Output format: table|json")
	guardResetCmd.Flags().StringVar(&guardResetOut, "out", "", "Write output to a file (default stdout)")
	guardResetCmd.Flags().StringVar(&guardResetOutDir, "out-dir", "", "Write output to a directory")
}
