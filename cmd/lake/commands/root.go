package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	lakeConfigPath string
	storeDriver    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lake",
	Short: "B3 quote lake - historical quotes and engineered features",
	Long: `B3 Lake Unified CLI

Loads B3 COTAHIST quotes into b3_hist, derives the sixteen-column
feature set into b3_featured, and serves on-demand lookups.

Usage:
  go run ./cmd/lake [command]

Examples:
  go run ./cmd/lake api
  go run ./cmd/lake lake create-hist --file assets/COTAHIST_M082025.txt
  go run ./cmd/lake lake featured
  go run ./cmd/lake asset get PETR4 --date 2025-09-25`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&lakeConfigPath, "lake-config", "", "lake tuning YAML (default: LAKE_CONFIG or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "store driver override (postgres|sqlite)")
}
