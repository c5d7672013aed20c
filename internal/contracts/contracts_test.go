package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateWithReasonsDoesNotMutate(t *testing.T) {
	orig := Candidate{
		Symbol:  "FPT",
		Reasons: []string{"features: return_5d=0.0100"},
	}

	copied := orig.WithReasons("Filtered: low liquidity")

	assert.Len(t, orig.Reasons, 1, "original must be untouched")
	assert.Len(t, copied.Reasons, 2)
	assert.Equal(t, "Filtered: low liquidity", copied.Reasons[1])
}

func TestCandidateScore(t *testing.T) {
	c := Candidate{ExpectedReturn: 0.02, Risk: 0.1}
	assert.InDelta(t, 0.2, c.Score(), 1e-12)

	// Epsilon floor keeps the score finite for zero risk
	z := Candidate{ExpectedReturn: 0.02, Risk: 0}
	assert.False(t, z.Score() < 0)
}

func TestDefaultGatingConfig(t *testing.T) {
	cfg := DefaultGatingConfig()
	assert.Equal(t, 50_000.0, cfg.MinAvgVolume20D)
	assert.Equal(t, 0.65, cfg.MinModelQuality)
	assert.Equal(t, 0.15, cfg.MinSignalToNoise)
}

func TestAllocationResultBudget(t *testing.T) {
	r := AllocationResult{
		Weights:    map[string]float64{"A": 0.6, "B": 0.3},
		CashWeight: 0.1,
	}
	assert.InDelta(t, 0.9, r.TotalWeight(), 1e-12)
	assert.Less(t, r.BudgetError(), 1e-9)
	assert.Equal(t, 2, r.Count())
}

func TestOrderPlanLadderSize(t *testing.T) {
	plan := OrderPlan{
		Ladder: []LadderStep{
			{StepPct: -0.20, SizePctOfSymbol: 0.40},
			{StepPct: -0.50, SizePctOfSymbol: 0.35},
			{StepPct: -1.00, SizePctOfSymbol: 0.25},
		},
	}
	assert.InDelta(t, 1.0, plan.LadderSize(), 1e-12)
}

func TestPortfolioHolds(t *testing.T) {
	p := Portfolio{
		Positions: []Position{{Symbol: "FPT", Qty: 200, AvgCost: 95_000}},
	}
	assert.True(t, p.Holds("FPT"))
	assert.False(t, p.Holds("VCB"))

	pos, ok := p.GetPosition("FPT")
	assert.True(t, ok)
	assert.Equal(t, 200.0, pos.Qty)
}

func TestRecommendationOutputValidate(t *testing.T) {
	valid := RecommendationOutput{
		HorizonDays: 7,
		CashWeight:  0.1,
		RecommendedActions: []RecommendedAction{
			{
				Symbol:       "FPT",
				Action:       ActionBuy,
				TargetWeight: 0.6,
				Confidence:   0.5,
				RiskControls: RiskControls{MaxLossPctPortfolio: 0.01},
			},
		},
	}
	assert.NoError(t, valid.Validate())

	badHorizon := valid
	badHorizon.HorizonDays = 0
	assert.Error(t, badHorizon.Validate())

	badHorizon.HorizonDays = 400
	assert.Error(t, badHorizon.Validate())

	badCash := valid
	badCash.CashWeight = 1.2
	assert.Error(t, badCash.Validate())

	badLoss := valid
	badLoss.RecommendedActions = []RecommendedAction{
		{Symbol: "FPT", RiskControls: RiskControls{MaxLossPctPortfolio: 0.1}},
	}
	assert.Error(t, badLoss.Validate())
}
