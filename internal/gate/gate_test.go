package gate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/logger"
)

func passing(symbol string) contracts.Candidate {
	return contracts.Candidate{
		Symbol:         symbol,
		ExpectedReturn: 0.02,
		Risk:           0.05,
		Liquidity:      100_000,
		ModelQuality:   0.75,
	}
}

func TestApplyKeepsGoodCandidate(t *testing.T) {
	g := New(contracts.DefaultGatingConfig(), logger.NewNop())

	res := g.Apply([]contracts.Candidate{passing("FPT")})
	require.Len(t, res.Kept, 1)
	assert.Empty(t, res.Removed)
}

func TestApplyRemovesLowLiquidity(t *testing.T) {
	g := New(contracts.DefaultGatingConfig(), logger.NewNop())

	c := passing("XYZ")
	c.Liquidity = 10_000

	res := g.Apply([]contracts.Candidate{passing("FPT"), c})
	require.Len(t, res.Kept, 1)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "XYZ", res.Removed[0].Symbol)
	assert.Contains(t, res.Removed[0].Reasons,
		"Filtered: low liquidity avg_volume_20d=10000 < 50000")
}

func TestApplyCollectsAllFailures(t *testing.T) {
	// checks do not short-circuit: a bad candidate lists every miss
	g := New(contracts.DefaultGatingConfig(), logger.NewNop())

	c := contracts.Candidate{
		Symbol:         "BAD",
		ExpectedReturn: 0.001,
		Risk:           0.05,
		Liquidity:      10_000,
		ModelQuality:   0.50,
	}

	res := g.Apply([]contracts.Candidate{c})
	require.Len(t, res.Removed, 1)
	reasons := res.Removed[0].Reasons
	require.Len(t, reasons, 3)
	assert.Contains(t, reasons[0], "low liquidity")
	assert.Contains(t, reasons[1], "low model_quality=0.50 < 0.65")
	assert.Contains(t, reasons[2], "low signal_to_noise=0.020 < 0.150")
}

func TestApplyNonPositiveRisk(t *testing.T) {
	g := New(contracts.DefaultGatingConfig(), logger.NewNop())

	zero := passing("ZRO")
	zero.Risk = 0
	nan := passing("NAN")
	nan.Risk = math.NaN()

	res := g.Apply([]contracts.Candidate{zero, nan})
	require.Len(t, res.Removed, 2)
	for _, c := range res.Removed {
		assert.Contains(t, c.Reasons, "Filtered: non-positive risk proxy")
	}
}

func TestApplySortsKeptByScore(t *testing.T) {
	g := New(contracts.DefaultGatingConfig(), logger.NewNop())

	a := passing("AAA")
	a.ExpectedReturn = 0.01
	b := passing("BBB")
	b.ExpectedReturn = 0.03

	res := g.Apply([]contracts.Candidate{a, b})
	require.Len(t, res.Kept, 2)
	assert.Equal(t, "BBB", res.Kept[0].Symbol)
	assert.Equal(t, "AAA", res.Kept[1].Symbol)
}

func TestApplyMonotoneInThresholds(t *testing.T) {
	// tightening any threshold never grows the kept set
	candidates := []contracts.Candidate{
		passing("FPT"), passing("VCB"), passing("HPG"),
	}
	candidates[1].Liquidity = 60_000
	candidates[2].ModelQuality = 0.66

	loose := New(contracts.DefaultGatingConfig(), logger.NewNop()).Apply(candidates)

	tight := contracts.DefaultGatingConfig()
	tight.MinAvgVolume20D = 80_000
	tight.MinModelQuality = 0.70
	strict := New(tight, logger.NewNop()).Apply(candidates)

	assert.LessOrEqual(t, len(strict.Kept), len(loose.Kept))
	for _, c := range strict.Kept {
		found := false
		for _, k := range loose.Kept {
			if k.Symbol == c.Symbol {
				found = true
			}
		}
		assert.True(t, found, "tightened kept set must be a subset")
	}
}

func TestApplyRemovedKeepsOriginalReasons(t *testing.T) {
	g := New(contracts.DefaultGatingConfig(), logger.NewNop())

	c := passing("XYZ")
	c.Liquidity = 100
	c.Reasons = []string{"sentiment_boost=0.0100"}

	res := g.Apply([]contracts.Candidate{c})
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "sentiment_boost=0.0100", res.Removed[0].Reasons[0])
	assert.Contains(t, res.Removed[0].Reasons[1], "Filtered: low liquidity")

	// the input candidate is never mutated
	assert.Len(t, c.Reasons, 1)
}
