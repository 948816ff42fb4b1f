// Package main provides the scout CLI:
// - serve: ops HTTP server (health, status, metrics) and cache warmer
// - score: evaluate one address and print or write its report
// - history: print recorded score snapshots of an address
// - migrate: apply schemas and optionally seed the project catalog
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"airdrop-scout/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Airdrop eligibility scoring for EVM wallets.",
	Long: `scout collects on-chain activity of a wallet across EVM chains, scores it
against the eligibility criteria of known airdrop campaigns and ranks the
campaigns by how worthwhile it is to act on them.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./scout.yaml)")
	flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flags.Bool("use-memory", false, "use in-memory storage instead of PostgreSQL and ClickHouse")
	flags.Bool("use-stub", false, "use deterministic fixture chain data instead of the explorer")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")

	rootCmd.AddCommand(newServeCmd(), newScoreCmd(), newHistoryCmd(), newMigrateCmd())
}

// loadConfig reads configuration for cmd, with its flags taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
