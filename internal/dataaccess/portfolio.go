package dataaccess

import (
	"context"
	"strings"

	"github.com/vnquant/advisor/internal/contracts"
)

// DemoPortfolioProvider returns a deterministic account snapshot per user.
// It stands in for a broker/account service; the risk-profile override is
// an explicit argument resolved before the engine call.
type DemoPortfolioProvider struct{}

// NewDemoPortfolioProvider creates the demo provider
func NewDemoPortfolioProvider() *DemoPortfolioProvider {
	return &DemoPortfolioProvider{}
}

// GetPortfolio resolves the demo portfolio for a user id.
// Certain user ids map to fixed risk profiles; riskOverride, when set,
// wins over the mapped profile.
func (p *DemoPortfolioProvider) GetPortfolio(ctx context.Context, userID string, riskOverride contracts.RiskProfile) (*contracts.Portfolio, error) {
	profile := contracts.RiskModerate
	switch strings.ToLower(userID) {
	case "demo_conservative", "cons":
		profile = contracts.RiskConservative
	case "demo_aggressive", "agg":
		profile = contracts.RiskAggressive
	}

	if riskOverride != "" {
		profile = riskOverride
	}

	return &contracts.Portfolio{
		Cash: 250_000_000, // VND
		Positions: []contracts.Position{
			{Symbol: "FPT", Qty: 200, AvgCost: 95_000},
			{Symbol: "VCB", Qty: 150, AvgCost: 85_000},
		},
		Constraints: contracts.AllocationConstraints{
			MaxWeightPerStock: 0.25,
			MinCashWeight:     0.15,
			MaxPositions:      8,
		},
		RiskProfile: profile,
	}, nil
}

var _ contracts.PortfolioProvider = (*DemoPortfolioProvider)(nil)
