package cmd

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postpilot/postpilot/internal/vault"
)

var vaultReveal bool

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage encrypted credentials",
	Long: `Store API credentials in an encrypted vault instead of the config
file. Credentials left empty in config are filled from the vault at
startup. Well-known names: platform_bearer_token, genai_api_key,
trends_api_key.`,
}

var vaultSetCmd = &cobra.Command{
	Use:   "set <name> [value]",
	Short: "Store a credential",
	Long: `Store a credential under the given name. When the value is omitted
it is read from stdin, keeping the secret out of shell history.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		name := strings.TrimSpace(args[0])
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Enter value for %s: ", name)
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read credential value: %w", err)
			}
			value = strings.TrimRight(line, "\r\n")
		}

		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("credential value is empty")
		}

		v, err := vault.Open(cfg.Vault.Dir)
		if err != nil {
			return err
		}
		if err := v.Set(name, value); err != nil {
			return err
		}

		fmt.Printf("Stored credential %q.\n", name)
		return nil
	},
}

var vaultShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored credential names",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		v, err := vault.Open(cfg.Vault.Dir)
		if err != nil {
			return err
		}
		creds, err := v.Load()
		if err != nil {
			return err
		}

		if len(creds) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}

		names := make([]string, 0, len(creds))
		for name := range creds {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if vaultReveal {
				fmt.Printf("%s: %s\n", name, creds[name])
			} else {
				fmt.Printf("%s: %s\n", name, maskCredential(creds[name]))
			}
		}
		return nil
	},
}

var vaultRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the vault encryption key",
	Long:  "Generate a new encryption key and re-encrypt every stored credential.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		v, err := vault.Open(cfg.Vault.Dir)
		if err != nil {
			return err
		}
		if err := v.Rotate(); err != nil {
			return err
		}

		fmt.Println("Vault key rotated.")
		return nil
	},
}

func maskCredential(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

func init() {
	vaultCmd.AddCommand(vaultSetCmd)
	vaultCmd.AddCommand(vaultShowCmd)
	vaultCmd.AddCommand(vaultRotateCmd)
	rootCmd.AddCommand(vaultCmd)

	vaultShowCmd.Flags().BoolVar(&vaultReveal, "reveal", false, "Print credential values in plain text")
}
