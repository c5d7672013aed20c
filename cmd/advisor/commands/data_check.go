package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnquant/advisor/internal/dataaccess"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/logger"
)

// dataCheckCmd represents the data-check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "Check local data file status",
	Long: `Loads every configured data file and reports row counts.

Checked sources:
- VN30 OHLCV history (required)
- News and analyzed sentiment
- Fundamentals (long format)
- Forecast artifacts (val_predictions.csv)
- Macro and USD/VND series

Example:
  go run ./cmd/advisor data-check`,
	RunE: runDataCheck,
}

func init() {
	rootCmd.AddCommand(dataCheckCmd)
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	provider := dataaccess.NewLocalFileProvider(cfg.Data, log)
	ctx := context.Background()

	fmt.Println("=== Advisor Data Check ===")
	fmt.Println()

	history, err := provider.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("history (required): %w", err)
	}
	bars := 0
	var lastDate time.Time
	for _, symBars := range history {
		bars += len(symBars)
		if len(symBars) > 0 && symBars[len(symBars)-1].Date.After(lastDate) {
			lastDate = symBars[len(symBars)-1].Date
		}
	}
	fmt.Printf("history:      %d symbols, %d bars, last date %s\n",
		len(history), bars, lastDate.Format("2006-01-02"))

	news, err := provider.LoadNews(ctx)
	if err != nil {
		return fmt.Errorf("news: %w", err)
	}
	fmt.Printf("news:         %d items\n", len(news))

	sentiment, err := provider.LoadSentiment(ctx)
	if err != nil {
		return fmt.Errorf("sentiment: %w", err)
	}
	fmt.Printf("sentiment:    %d items\n", len(sentiment))

	fundamentals, err := provider.LoadFundamentals(ctx)
	if err != nil {
		return fmt.Errorf("fundamentals: %w", err)
	}
	fmt.Printf("fundamentals: %d records\n", len(fundamentals))

	forecasts, err := provider.LoadForecasts(ctx, lastDate, 7)
	if err != nil {
		return fmt.Errorf("forecasts: %w", err)
	}
	fmt.Printf("forecasts:    %d symbols\n", len(forecasts))

	macro, err := provider.LoadMacro(ctx)
	if err != nil {
		return fmt.Errorf("macro: %w", err)
	}
	fmt.Printf("macro:        %d points\n", len(macro))

	usdvnd, err := provider.LoadUSDVND(ctx)
	if err != nil {
		return fmt.Errorf("usdvnd: %w", err)
	}
	fmt.Printf("usdvnd:       %d points\n", len(usdvnd))

	return nil
}
