package signal

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/logger"
)

// Blender turns per-symbol features plus optional evidence into candidates
// SSOT: expected-return blending happens here and nowhere else
type Blender struct {
	logger *logger.Logger
}

// NewBlender creates a new signal blender
func NewBlender(log *logger.Logger) *Blender {
	return &Blender{logger: log}
}

// Inputs carries one invocation's evidence snapshots.
// Missing sentiment/fundamentals/forecast entries contribute zero; they are
// soft data gaps, never errors.
type Inputs struct {
	Features        map[string]contracts.SymbolFeatures
	Sentiment       map[string]contracts.SentimentAggregate
	Fundamentals    map[string]contracts.FundamentalsSnapshot
	Forecasts       map[string]contracts.ForecastPoint
	HorizonDays     int
	FundLagQuarters int
}

// Blend weights: with an external forecast the model dominates; in stub
// mode 5d momentum carries the signal and the boosts stay weak.
const (
	forecastModelWeight     = 0.85
	forecastSentimentWeight = 0.10
	forecastFundWeight      = 0.05

	stubMomentumWeight  = 0.75
	stubSentimentWeight = 0.20
	stubFundWeight      = 0.05
)

// Build creates one candidate per symbol with usable features.
// Output is sorted by symbol so repeated runs are byte-identical.
func (b *Blender) Build(in Inputs) []contracts.Candidate {
	symbols := make([]string, 0, len(in.Features))
	for sym := range in.Features {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	horizon := float64(in.HorizonDays)
	if horizon < 1 {
		horizon = 1
	}

	candidates := make([]contracts.Candidate, 0, len(symbols))
	for _, sym := range symbols {
		f := in.Features[sym]

		sboost := 0.0
		if agg, ok := in.Sentiment[sym]; ok {
			sboost = SentimentBoost(agg.AvgScore)
		}
		fboost := 0.0
		if snap, ok := in.Fundamentals[sym]; ok {
			fboost = FundamentalsBoost(&snap)
		}

		var expectedReturn, modelQuality float64
		forecastSource := "stub"
		if fp, ok := in.Forecasts[sym]; ok {
			expectedReturn = forecastModelWeight*fp.ExpectedReturn +
				forecastSentimentWeight*sboost +
				forecastFundWeight*fboost
			modelQuality = fp.ModelQuality
			if modelQuality == 0 {
				modelQuality = DeterministicModelQuality(sym)
			}
			forecastSource = "artifacts"
		} else {
			expectedReturn = stubMomentumWeight*f.Return5D +
				stubSentimentWeight*sboost +
				stubFundWeight*fboost
			modelQuality = DeterministicModelQuality(sym)
		}

		risk := f.RealizedVol20D * math.Sqrt(horizon)

		candidates = append(candidates, contracts.Candidate{
			Symbol:         sym,
			ExpectedReturn: expectedReturn,
			Risk:           risk,
			Liquidity:      f.AvgVolume20D,
			ModelQuality:   modelQuality,
			Reasons: []string{
				fmt.Sprintf("features: return_5d=%.4f, vol20d=%.4f, atr14=%.4f, avg_vol20d=%.0f",
					f.Return5D, f.RealizedVol20D, f.ATR14, f.AvgVolume20D),
				fmt.Sprintf("sentiment_boost=%.4f", sboost),
				fmt.Sprintf("fundamentals_boost=%.4f (lag_quarters=%d)", fboost, in.FundLagQuarters),
				fmt.Sprintf("forecast_source=%s", forecastSource),
			},
		})
	}

	b.logger.WithFields(map[string]interface{}{
		"candidates":   len(candidates),
		"horizon_days": in.HorizonDays,
	}).Debug("Candidates blended")

	return candidates
}

// SentimentBoost maps an aggregate sentiment score (roughly -2..+2) into a
// small return boost bounded to +/- 1%
func SentimentBoost(avgScore float64) float64 {
	s := math.Max(-2.0, math.Min(2.0, avgScore))
	return 0.01 * (s / 2.0)
}

// FundamentalsBoost is a deterministic small boost for the expected-return
// stub. Bounded to [-0.01, +0.01] and designed to stay weak vs momentum.
// Higher ROE/ROA push positive; cheaper P/E and P/B push positive.
// Missing metrics contribute 0 to the score.
func FundamentalsBoost(snapshot *contracts.FundamentalsSnapshot) float64 {
	if snapshot == nil || len(snapshot.Metrics) == 0 {
		return 0.0
	}
	m := snapshot.Metrics

	roe := m["roe"]
	roa := m["roa"]
	pe := m["p_e"]
	pb := m["p_b"]

	// Normalized around typical VN ranges:
	// roe ~ 0.10..0.25, roa ~ 0.01..0.03, pe ~ 6..18, pb ~ 0.8..3
	score := 0.0
	score += (roe - 0.15) / 0.10
	score += (roa - 0.02) / 0.01
	if pe > 0 {
		score += (10.0 - pe) / 10.0
	}
	if pb > 0 {
		score += (1.5 - pb) / 1.5
	}

	boost := 0.0025 * score
	if boost > 0.01 {
		return 0.01
	}
	if boost < -0.01 {
		return -0.01
	}
	return boost
}

// DeterministicModelQuality derives a pseudo-quality in [0.6, 0.8] from a
// stable hash of the symbol, so repeated stub runs are reproducible without
// external randomness.
func DeterministicModelQuality(symbol string) float64 {
	h := sha256.Sum256([]byte(symbol))
	x := float64(binary.BigEndian.Uint16(h[:2])) / 65535.0
	return 0.6 + 0.2*x
}
