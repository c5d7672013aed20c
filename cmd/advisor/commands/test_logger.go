package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Exercise the structured logger",
	Long: `Emits sample log lines in both formats.

Example:
  go run ./cmd/advisor test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Advisor Logger Test ===")

	fmt.Println("1. JSON format")
	jsonLog := logger.New(&config.Config{Env: "production", LogLevel: "debug", LogFormat: "json"})
	emitSamples(jsonLog)

	fmt.Println("2. Console format")
	consoleLog := logger.New(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"})
	emitSamples(consoleLog)

	return nil
}

func emitSamples(log *logger.Logger) {
	log.Debug("debug message")
	log.Info("info message")
	log.WithFields(map[string]interface{}{
		"symbol":       "FPT",
		"horizon_days": 7,
	}).Info("structured fields")
	log.WithError(errors.New("sample failure")).Warn("error context")
}
