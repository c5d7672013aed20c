package contracts

// ActionType represents the recommended action for a symbol
type ActionType string

const (
	ActionBuy  ActionType = "buy"
	ActionSell ActionType = "sell"
	ActionHold ActionType = "hold"
)

// OrderType represents the order placement mechanism
type OrderType string

const (
	OrderTypeLimit     OrderType = "limit"
	OrderTypeMarket    OrderType = "market"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// TimeInForce represents order lifetime
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
)

// RiskProfile selects stop/target multipliers
type RiskProfile string

const (
	RiskConservative RiskProfile = "conservative"
	RiskModerate     RiskProfile = "moderate"
	RiskAggressive   RiskProfile = "aggressive"
)

// LadderStep is one rung of a laddered limit entry
type LadderStep struct {
	StepPct         float64 `json:"step_pct"`           // price offset vs anchor, -0.5 means -0.5%
	SizePctOfSymbol float64 `json:"size_pct_of_symbol"` // 0.0 ~ 1.0, ladder sums to 1.0
}

// OrderPlan is the order-placement rule for one symbol/action
type OrderPlan struct {
	OrderType   OrderType    `json:"order_type"`
	EntryRule   string       `json:"entry_rule"`
	Ladder      []LadderStep `json:"ladder,omitempty"`
	TimeInForce TimeInForce  `json:"time_in_force"`
}

// LadderSize returns the sum of ladder step sizes (1.0 when a ladder exists)
func (p *OrderPlan) LadderSize() float64 {
	total := 0.0
	for _, s := range p.Ladder {
		total += s.SizePctOfSymbol
	}
	return total
}

// RiskControls is the stop-loss/take-profit rule for one symbol/action
type RiskControls struct {
	StopLossRule         string  `json:"stop_loss_rule"`
	TakeProfitRule       string  `json:"take_profit_rule"`
	MaxLossPctPortfolio  float64 `json:"max_loss_pct_portfolio"` // 0.0 ~ 0.05
}
