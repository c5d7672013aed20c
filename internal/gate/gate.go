package gate

import (
	"fmt"
	"math"
	"sort"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/logger"
)

// Gate applies deterministic pre-trade filters to blended candidates.
// SSOT: every removal carries an explicit reason so the output is auditable
type Gate struct {
	cfg    contracts.GatingConfig
	logger *logger.Logger
}

// New creates a gate with the given thresholds
func New(cfg contracts.GatingConfig, log *logger.Logger) *Gate {
	return &Gate{cfg: cfg, logger: log}
}

// Apply partitions candidates into kept and removed. All checks are
// evaluated for every candidate (no short circuit), so a removed symbol
// lists every threshold it missed. Kept candidates are sorted by
// risk-adjusted score, best first.
func (g *Gate) Apply(candidates []contracts.Candidate) contracts.GatedResult {
	kept := make([]contracts.Candidate, 0, len(candidates))
	removed := make([]contracts.Candidate, 0)

	for _, c := range candidates {
		reasons := g.check(c)
		if len(reasons) == 0 {
			kept = append(kept, c)
			continue
		}
		removed = append(removed, c.WithReasons(reasons...))
	}

	sort.SliceStable(kept, func(i, j int) bool {
		si, sj := kept[i].Score(), kept[j].Score()
		if si != sj {
			return si > sj
		}
		return kept[i].Symbol < kept[j].Symbol
	})

	g.logger.WithFields(map[string]interface{}{
		"kept":    len(kept),
		"removed": len(removed),
	}).Debug("Gating applied")

	return contracts.GatedResult{Kept: kept, Removed: removed}
}

func (g *Gate) check(c contracts.Candidate) []string {
	var reasons []string

	if c.Liquidity < g.cfg.MinAvgVolume20D {
		reasons = append(reasons, fmt.Sprintf(
			"Filtered: low liquidity avg_volume_20d=%.0f < %.0f",
			c.Liquidity, g.cfg.MinAvgVolume20D))
	}
	if c.ModelQuality < g.cfg.MinModelQuality {
		reasons = append(reasons, fmt.Sprintf(
			"Filtered: low model_quality=%.2f < %.2f",
			c.ModelQuality, g.cfg.MinModelQuality))
	}

	if c.Risk <= 0 || math.IsNaN(c.Risk) {
		reasons = append(reasons, "Filtered: non-positive risk proxy")
	} else {
		sn := math.Abs(c.ExpectedReturn) / c.Risk
		if sn < g.cfg.MinSignalToNoise {
			reasons = append(reasons, fmt.Sprintf(
				"Filtered: low signal_to_noise=%.3f < %.3f",
				sn, g.cfg.MinSignalToNoise))
		}
	}

	return reasons
}
