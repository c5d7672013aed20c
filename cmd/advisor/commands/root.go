package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "VN30 deterministic trading advisor",
	Long: `VN30 Trading Advisor CLI

Deterministic recommendation pipeline over local VN30 market files:
features -> signal blend -> gating -> allocation -> execution rules.

Usage:
  go run ./cmd/advisor [command]

Examples:
  go run ./cmd/advisor recommend --user demo --horizon 7 --top 3
  go run ./cmd/advisor api
  go run ./cmd/advisor scheduler start
  go run ./cmd/advisor data-check`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
