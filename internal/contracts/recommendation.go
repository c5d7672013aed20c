package contracts

import "fmt"

// UncertaintyBand is an ~80% coverage interval around the expected return
// under a normal approximation (p50 ± 1.2816·scale)
type UncertaintyBand struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// RecommendedAction is one acted-on symbol in the final plan
type RecommendedAction struct {
	Symbol          string          `json:"symbol"`
	Action          ActionType      `json:"action"`
	TargetWeight    float64         `json:"target_weight"` // 0.0 ~ 1.0
	Confidence      float64         `json:"confidence"`    // 0.0 ~ 1.0
	ExpectedReturn  float64         `json:"expected_return"`
	UncertaintyBand UncertaintyBand `json:"uncertainty_band"`
	OrderPlan       OrderPlan       `json:"order_plan"`
	RiskControls    RiskControls    `json:"risk_controls"`
	Evidence        []string        `json:"evidence"`
	Invalidation    []string        `json:"invalidation"`
}

// RecommendationOutput is the terminal, caller-visible artifact.
// Created once per invocation; after construction only the text overlay may
// touch it, and only its textual fields.
type RecommendationOutput struct {
	HorizonDays        int                 `json:"horizon_days"` // echoes the request, 1 ~ 365
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
	CashWeight         float64             `json:"cash_weight"` // 0.0 ~ 1.0
	Notes              string              `json:"notes"`
}

// Validate checks the output contract bounds
func (o *RecommendationOutput) Validate() error {
	if o.HorizonDays < 1 || o.HorizonDays > 365 {
		return fmt.Errorf("horizon_days must be in [1,365], got %d", o.HorizonDays)
	}
	if o.CashWeight < 0 || o.CashWeight > 1 {
		return fmt.Errorf("cash_weight must be in [0,1], got %f", o.CashWeight)
	}
	for _, a := range o.RecommendedActions {
		if a.TargetWeight < 0 || a.TargetWeight > 1 {
			return fmt.Errorf("%s: target_weight must be in [0,1], got %f", a.Symbol, a.TargetWeight)
		}
		if a.Confidence < 0 || a.Confidence > 1 {
			return fmt.Errorf("%s: confidence must be in [0,1], got %f", a.Symbol, a.Confidence)
		}
		if a.RiskControls.MaxLossPctPortfolio < 0 || a.RiskControls.MaxLossPctPortfolio > 0.05 {
			return fmt.Errorf("%s: max_loss_pct_portfolio must be in [0,0.05], got %f",
				a.Symbol, a.RiskControls.MaxLossPctPortfolio)
		}
	}
	return nil
}

// FactsPayload is the complete numeric result set handed to the text
// overlay. The overlay must never introduce or change numbers; it may only
// return notes and per-symbol entry_rule/invalidation strings.
type FactsPayload struct {
	AsOf               string              `json:"asof"`
	Portfolio          FactsPortfolio      `json:"portfolio"`
	Gating             FactsGating         `json:"gating"`
	Allocation         AllocationResult    `json:"allocation"`
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
	MacroTail          []MacroPoint        `json:"macro_tail,omitempty"`
	USDVNDTail         []FXPoint           `json:"usdvnd_tail,omitempty"`
}

// FactsPortfolio is the portfolio slice of the facts payload
type FactsPortfolio struct {
	RiskProfile RiskProfile           `json:"risk_profile"`
	Constraints AllocationConstraints `json:"constraints"`
}

// FactsGating is the gating slice of the facts payload
type FactsGating struct {
	Kept    []Candidate `json:"kept"`
	Removed []Candidate `json:"removed"`
}

// OverlayText is what the overlay is allowed to produce: textual fields only
type OverlayText struct {
	Notes     string                       `json:"notes"`
	PerSymbol map[string]OverlaySymbolText `json:"per_symbol"`
}

// OverlaySymbolText carries the per-symbol textual fields
type OverlaySymbolText struct {
	EntryRule    string   `json:"entry_rule"`
	Invalidation []string `json:"invalidation"`
}
