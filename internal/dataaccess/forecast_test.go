package dataaccess

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/logger"
)

func TestLoadForecastBundleCSV(t *testing.T) {
	// constant error of 0.01 per row -> rmse = 0.01
	path := writeTempCSV(t, "val_predictions.csv",
		"date,symbol,y_true,y_pred\n"+
			"2025-12-01,FPT,0.020,0.010\n"+
			"2025-12-02,FPT,0.025,0.015\n"+
			"2025-12-03,FPT,0.018,0.008\n"+
			"2025-12-09,VCB,0.010,0.005\n") // single row: fallback sigma

	asof := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)
	bundle, err := LoadForecastBundleCSV(path, asof, 7)
	require.NoError(t, err)

	require.Contains(t, bundle, "FPT")
	fp := bundle["FPT"]
	assert.InDelta(t, 0.008, fp.ExpectedReturn, 1e-12) // last y_pred <= asof
	assert.InDelta(t, 0.01, fp.UncertaintySigma, 1e-9)
	// quality = 1 / (1 + (0.01/0.02)^2) = 0.8
	assert.InDelta(t, 0.8, fp.ModelQuality, 1e-9)
	assert.Equal(t, 7, fp.HorizonDays)

	// VCB's only row is after asof: excluded entirely
	assert.NotContains(t, bundle, "VCB")
}

func TestLoadForecastBundleFallbackSigma(t *testing.T) {
	path := writeTempCSV(t, "val_predictions.csv",
		"date,symbol,y_true,y_pred\n"+
			"2025-12-01,VCB,0.010,0.005\n")

	asof := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)
	bundle, err := LoadForecastBundleCSV(path, asof, 7)
	require.NoError(t, err)

	require.Contains(t, bundle, "VCB")
	assert.Equal(t, fallbackSigma, bundle["VCB"].UncertaintySigma)
}

func TestQualityFromRMSE(t *testing.T) {
	assert.InDelta(t, 0.8, qualityFromRMSE(0.01), 1e-9)
	assert.InDelta(t, 0.5, qualityFromRMSE(0.02), 1e-9)
	assert.Equal(t, 0.0, qualityFromRMSE(-1))
}

func TestLocalFileProviderSoftGaps(t *testing.T) {
	// All paths point to missing files: every optional source is an empty
	// snapshot, never an error.
	provider := NewLocalFileProvider(config.DataConfig{
		NewsCSV:         "missing/news.csv",
		SentimentCSV:    "missing/sentiment.csv",
		FundamentalsCSV: "missing/fundamentals.csv",
		ForecastCSV:     "missing/forecast.csv",
		MacroCSV:        "missing/macro.csv",
		USDVNDCSV:       "missing/usdvnd.csv",
	}, logger.NewNop())

	ctx := context.Background()

	news, err := provider.LoadNews(ctx)
	require.NoError(t, err)
	assert.Empty(t, news)

	sentiment, err := provider.LoadSentiment(ctx)
	require.NoError(t, err)
	assert.Empty(t, sentiment)

	fundamentals, err := provider.LoadFundamentals(ctx)
	require.NoError(t, err)
	assert.Empty(t, fundamentals)

	forecasts, err := provider.LoadForecasts(ctx, time.Now(), 7)
	require.NoError(t, err)
	assert.Empty(t, forecasts)

	macro, err := provider.LoadMacro(ctx)
	require.NoError(t, err)
	assert.Empty(t, macro)
}

func TestDemoPortfolioProvider(t *testing.T) {
	provider := NewDemoPortfolioProvider()
	ctx := context.Background()

	p, err := provider.GetPortfolio(ctx, "demo", "")
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskModerate, p.RiskProfile)
	assert.True(t, p.Holds("FPT"))
	assert.Equal(t, 0.25, p.Constraints.MaxWeightPerStock)

	cons, err := provider.GetPortfolio(ctx, "demo_conservative", "")
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskConservative, cons.RiskProfile)

	// explicit override wins over the user mapping
	agg, err := provider.GetPortfolio(ctx, "demo_conservative", contracts.RiskAggressive)
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskAggressive, agg.RiskProfile)
}
