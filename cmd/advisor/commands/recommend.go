package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/internal/engine"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/logger"
)

// recommendCmd represents the recommend command
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate a recommendation plan",
	Long: `Runs the deterministic recommendation pipeline once and prints the
plan as JSON.

The pipeline:
- loads local VN30 history, news, sentiment, fundamentals and macro files
- blends per-symbol signals into expected returns
- gates candidates on liquidity, model quality and signal-to-noise
- allocates weights under the portfolio constraints
- attaches execution and risk-control rules per action

Example:
  go run ./cmd/advisor recommend --user demo --horizon 7 --top 3
  go run ./cmd/advisor recommend --user demo_conservative --forecast-source artifacts
  go run ./cmd/advisor recommend --risk aggressive`,
	RunE: runRecommend,
}

var (
	recUser           string
	recHorizonDays    int
	recTopN           int
	recFundLag        int
	recForecastSource string
	recRiskProfile    string
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVar(&recUser, "user", "demo", "user id (demo, demo_conservative, demo_aggressive)")
	recommendCmd.Flags().IntVar(&recHorizonDays, "horizon", 7, "forecast horizon in days (1-365)")
	recommendCmd.Flags().IntVar(&recTopN, "top", 3, "maximum buy candidates")
	recommendCmd.Flags().IntVar(&recFundLag, "fund-lag", 0, "fundamentals reporting lag in quarters")
	recommendCmd.Flags().StringVar(&recForecastSource, "forecast-source", "stub", "forecast source (stub|artifacts)")
	recommendCmd.Flags().StringVar(&recRiskProfile, "risk", "", "risk profile override (conservative|moderate|aggressive)")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	eng := buildEngine(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	out, err := eng.Recommend(ctx, engine.Request{
		UserID:          recUser,
		HorizonDays:     recHorizonDays,
		TopN:            recTopN,
		FundLagQuarters: recFundLag,
		ForecastSource:  recForecastSource,
		RiskOverride:    contracts.RiskProfile(recRiskProfile),
	})
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}
