package allocation

import (
	"fmt"
	"sort"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/logger"
)

// Allocator converts scored candidates into portfolio weights.
// SSOT: the score-proportional weighting with constraint enforcement
// lives here; the engine never touches weights directly.
//
// Algorithm:
//   - score candidates by expected_return / risk
//   - select top_n (bounded by max_positions)
//   - weights proportional to positive scores within the investable budget
//   - clamp max_weight_per_stock, rescale once if the clamp overflows
//   - enforce min_cash_weight, leftover goes to cash
type Allocator struct {
	logger *logger.Logger
}

// New creates an allocator
func New(log *logger.Logger) *Allocator {
	return &Allocator{logger: log}
}

const riskFloor = 1e-12

// Allocate produces target weights plus a cash weight summing to 1.0.
// Every degenerate input resolves to 100% cash with a diagnostic, never
// an error: the caller always gets a valid allocation.
func (a *Allocator) Allocate(candidates []contracts.AllocationInput, topN int, constraints contracts.AllocationConstraints) contracts.AllocationResult {
	if topN <= 0 {
		return allCash("top_n<=0 -> 100% cash")
	}

	pos := make([]contracts.AllocationInput, 0, len(candidates))
	for _, c := range candidates {
		if c.ExpectedReturn > 0 && c.Risk > 0 {
			pos = append(pos, c)
		}
	}
	if len(pos) == 0 {
		return allCash("no positive candidates -> 100% cash")
	}

	sort.SliceStable(pos, func(i, j int) bool {
		si := pos[i].ExpectedReturn / max64(pos[i].Risk, riskFloor)
		sj := pos[j].ExpectedReturn / max64(pos[j].Risk, riskFloor)
		if si != sj {
			return si > sj
		}
		return pos[i].Symbol < pos[j].Symbol
	})

	k := topN
	if constraints.MaxPositions < k {
		k = constraints.MaxPositions
	}
	if len(pos) < k {
		k = len(pos)
	}
	picked := pos[:k]

	scores := make([]float64, len(picked))
	ssum := 0.0
	for i, c := range picked {
		s := c.ExpectedReturn / max64(c.Risk, riskFloor)
		if s < 0 {
			s = 0
		}
		scores[i] = s
		ssum += s
	}
	if ssum <= 0 {
		return allCash("scores sum to 0 -> 100% cash")
	}

	investable := 1.0 - constraints.MinCashWeight
	if investable < 0 {
		investable = 0
	}

	weights := make(map[string]float64, len(picked))
	used := 0.0
	for i, c := range picked {
		w := investable * (scores[i] / ssum)
		if w > constraints.MaxWeightPerStock {
			w = constraints.MaxWeightPerStock
		}
		weights[c.Symbol] = w
		used += w
	}

	// clamping can only shrink the total, but guard the rescale anyway
	if used > investable && used > 0 {
		scale := investable / used
		used = 0
		for sym := range weights {
			weights[sym] *= scale
			used += weights[sym]
		}
	}

	cash := 1.0 - used
	if cash < constraints.MinCashWeight {
		targetUsed := 1.0 - constraints.MinCashWeight
		if used > 0 {
			scale := targetUsed / used
			used = 0
			for sym := range weights {
				weights[sym] *= scale
				used += weights[sym]
			}
		}
		cash = 1.0 - used
	}

	result := contracts.AllocationResult{
		Weights:    weights,
		CashWeight: cash,
		Diagnostics: []string{fmt.Sprintf(
			"picked=%d/%d investable=%.3f used=%.3f cash=%.3f",
			k, len(pos), investable, used, cash)},
	}

	a.logger.WithFields(map[string]interface{}{
		"positions":   len(weights),
		"cash_weight": cash,
	}).Debug("Allocation computed")

	return result
}

func allCash(diag string) contracts.AllocationResult {
	return contracts.AllocationResult{
		Weights:     map[string]float64{},
		CashWeight:  1.0,
		Diagnostics: []string{diag},
	}
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
