package signal

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/logger"
)

func TestSentimentBoost(t *testing.T) {
	assert.InDelta(t, 0.01, SentimentBoost(2.0), 1e-12)
	assert.InDelta(t, -0.01, SentimentBoost(-2.0), 1e-12)
	assert.InDelta(t, 0.005, SentimentBoost(1.0), 1e-12)
	assert.Equal(t, 0.0, SentimentBoost(0))

	// scores beyond the nominal range clamp, never overshoot
	assert.InDelta(t, 0.01, SentimentBoost(50), 1e-12)
	assert.InDelta(t, -0.01, SentimentBoost(-50), 1e-12)
}

func TestFundamentalsBoost(t *testing.T) {
	assert.Equal(t, 0.0, FundamentalsBoost(nil))
	assert.Equal(t, 0.0, FundamentalsBoost(&contracts.FundamentalsSnapshot{}))

	// strong fundamentals saturate at +1%
	strong := &contracts.FundamentalsSnapshot{Metrics: map[string]float64{
		"roe": 0.30, "roa": 0.05, "p_e": 6.0, "p_b": 0.9,
	}}
	assert.InDelta(t, 0.01, FundamentalsBoost(strong), 1e-12)

	// weak fundamentals saturate at -1%
	weak := &contracts.FundamentalsSnapshot{Metrics: map[string]float64{
		"roe": 0.02, "roa": 0.001, "p_e": 30.0, "p_b": 4.0,
	}}
	assert.InDelta(t, -0.01, FundamentalsBoost(weak), 1e-12)

	// roe exactly at the 0.15 pivot and roa at 0.02 with no valuation
	// metrics contributes nothing
	neutral := &contracts.FundamentalsSnapshot{Metrics: map[string]float64{
		"roe": 0.15, "roa": 0.02,
	}}
	assert.InDelta(t, 0.0, FundamentalsBoost(neutral), 1e-12)
}

func TestDeterministicModelQuality(t *testing.T) {
	q := DeterministicModelQuality("FPT")
	assert.GreaterOrEqual(t, q, 0.6)
	assert.LessOrEqual(t, q, 0.8)
	assert.Equal(t, q, DeterministicModelQuality("FPT"))
	assert.NotEqual(t, q, DeterministicModelQuality("VCB"))

	// matches the published derivation exactly
	h := sha256.Sum256([]byte("FPT"))
	want := 0.6 + 0.2*float64(binary.BigEndian.Uint16(h[:2]))/65535.0
	assert.Equal(t, want, q)
}

func TestBuildStubBlend(t *testing.T) {
	b := NewBlender(logger.NewNop())

	out := b.Build(Inputs{
		Features: map[string]contracts.SymbolFeatures{
			"FPT": {Return5D: 0.04, RealizedVol20D: 0.02, ATR14: 1.5, AvgVolume20D: 100_000, LastClose: 95_000},
		},
		Sentiment: map[string]contracts.SentimentAggregate{
			"FPT": {AvgScore: 2.0, N: 2},
		},
		HorizonDays:     7,
		FundLagQuarters: 1,
	})

	require.Len(t, out, 1)
	c := out[0]
	assert.Equal(t, "FPT", c.Symbol)

	// 0.75*0.04 + 0.20*0.01 + 0.05*0
	assert.InDelta(t, 0.032, c.ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.02*math.Sqrt(7), c.Risk, 1e-12)
	assert.Equal(t, 100_000.0, c.Liquidity)
	assert.Equal(t, DeterministicModelQuality("FPT"), c.ModelQuality)

	require.Len(t, c.Reasons, 4)
	assert.Equal(t, "features: return_5d=0.0400, vol20d=0.0200, atr14=1.5000, avg_vol20d=100000", c.Reasons[0])
	assert.Equal(t, "sentiment_boost=0.0100", c.Reasons[1])
	assert.Equal(t, "fundamentals_boost=0.0000 (lag_quarters=1)", c.Reasons[2])
	assert.Equal(t, "forecast_source=stub", c.Reasons[3])
}

func TestBuildForecastBlend(t *testing.T) {
	b := NewBlender(logger.NewNop())

	out := b.Build(Inputs{
		Features: map[string]contracts.SymbolFeatures{
			"FPT": {Return5D: 0.04, RealizedVol20D: 0.02, AvgVolume20D: 100_000},
		},
		Forecasts: map[string]contracts.ForecastPoint{
			"FPT": {Symbol: "FPT", ExpectedReturn: 0.02, ModelQuality: 0.8, HorizonDays: 7},
		},
		Sentiment: map[string]contracts.SentimentAggregate{
			"FPT": {AvgScore: 1.0, N: 1},
		},
		HorizonDays: 7,
	})

	require.Len(t, out, 1)
	c := out[0]

	// 0.85*0.02 + 0.10*0.005 + 0.05*0
	assert.InDelta(t, 0.0175, c.ExpectedReturn, 1e-12)
	assert.Equal(t, 0.8, c.ModelQuality)
	assert.Equal(t, "forecast_source=artifacts", c.Reasons[3])
}

func TestBuildDeterministicOrder(t *testing.T) {
	b := NewBlender(logger.NewNop())
	in := Inputs{
		Features: map[string]contracts.SymbolFeatures{
			"VCB": {Return5D: 0.01, RealizedVol20D: 0.01, AvgVolume20D: 80_000},
			"FPT": {Return5D: 0.02, RealizedVol20D: 0.02, AvgVolume20D: 90_000},
			"HPG": {Return5D: 0.03, RealizedVol20D: 0.03, AvgVolume20D: 70_000},
		},
		HorizonDays: 7,
	}

	first := b.Build(in)
	second := b.Build(in)

	require.Len(t, first, 3)
	assert.Equal(t, "FPT", first[0].Symbol)
	assert.Equal(t, "HPG", first[1].Symbol)
	assert.Equal(t, "VCB", first[2].Symbol)
	assert.Equal(t, first, second)
}
