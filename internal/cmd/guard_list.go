package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/core/store"
	"github.com/postpilot/postpilot/internal/output"
)

var (
	guardListFormat string
	guardListOut    string
	guardListOutDir string
	guardListAll    bool
	guardListGate   string
	guardListPrefix string
)

var guardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored gate state",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(guardListFormat)
		if err != nil {
			return err
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

		query := store.GuardQuery{
			All:    guardListAll,
			Gate:   strings.TrimSpace(guardListGate),
			Prefix: strings.TrimSpace(guardListPrefix),
		}
		if !query.All && query.Gate == "" && query.Prefix == "" {
			query.All = true
		}

		entries, err := db.ListGuardStates(cmd.Context(), query)
		if err != nil {
			return err
		}

		outPath, outDir, err := resolveOutputTargets(guardListOut, guardListOutDir)
		if err != nil {
			return err
		}
		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("guard.list.%s", outputExtension(format)))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatGuards(entries)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	guardListCmd.Flags().StringVar(&guardListFormat, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	guardListCmd.Flags().StringVar(&guardListOut, "out", "", "Write output to a file (default stdout)")
	guardListCmd.Flags().StringVar(&guardListOutDir, "out-dir", "", "Write output to a directory")
	guardListCmd.Flags().BoolVar(&guardListAll, "all", false, "List all gates")
	guardListCmd.Flags().StringVar(&guardListGate, "gate", "", "List a single gate (exact match)")
	guardListCmd.Flags().StringVar(&guardListPrefix, "prefix", "", "List gates with matching prefix")
}
