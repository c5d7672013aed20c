package contracts

import "math"

// AllocationConstraints come from the portfolio entity
type AllocationConstraints struct {
	MaxWeightPerStock float64 `json:"max_weight_per_stock"` // 0.0 ~ 1.0
	MinCashWeight     float64 `json:"min_cash_weight"`      // 0.0 ~ 1.0
	MaxPositions      int     `json:"max_positions"`        // >= 0
}

// AllocationInput is the minimal candidate view the allocator needs
type AllocationInput struct {
	Symbol         string  `json:"symbol"`
	ExpectedReturn float64 `json:"expected_return"`
	Risk           float64 `json:"risk"`
}

// AllocationResult holds portfolio weights plus cash
// Invariant: sum(weights) + cash_weight == 1 within 1e-6
type AllocationResult struct {
	Weights     map[string]float64 `json:"weights"`
	CashWeight  float64            `json:"cash_weight"`
	Diagnostics []string           `json:"diagnostics"`
}

// TotalWeight returns the sum of all position weights
func (r *AllocationResult) TotalWeight() float64 {
	total := 0.0
	for _, w := range r.Weights {
		total += w
	}
	return total
}

// BudgetError returns |sum(weights) + cash - 1|
func (r *AllocationResult) BudgetError() float64 {
	return math.Abs(r.TotalWeight() + r.CashWeight - 1.0)
}

// Count returns the number of allocated positions
func (r *AllocationResult) Count() int {
	return len(r.Weights)
}
