package contracts

// Position is one held lot in the account
type Position struct {
	Symbol  string  `json:"symbol"`
	Qty     float64 `json:"qty"`
	AvgCost float64 `json:"avg_cost"`
}

// Portfolio is the read-only account snapshot consumed per invocation
type Portfolio struct {
	Cash        float64               `json:"cash"` // VND
	Positions   []Position            `json:"positions"`
	Constraints AllocationConstraints `json:"constraints"`
	RiskProfile RiskProfile           `json:"risk_profile"`
}

// Holds checks whether the portfolio holds the given symbol
func (p *Portfolio) Holds(symbol string) bool {
	for _, pos := range p.Positions {
		if pos.Symbol == symbol {
			return true
		}
	}
	return false
}

// GetPosition finds a held position by symbol
func (p *Portfolio) GetPosition(symbol string) (*Position, bool) {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			return &p.Positions[i], true
		}
	}
	return nil, false
}
