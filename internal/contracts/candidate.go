package contracts

// Candidate is one symbol's blended signal estimate with provenance
// SSOT: SignalBlender → Gate → Allocator candidate hand-off
type Candidate struct {
	Symbol         string   `json:"symbol"`
	ExpectedReturn float64  `json:"expected_return"`
	Risk           float64  `json:"risk"`          // horizon-scaled vol proxy, > 0 expected
	Liquidity      float64  `json:"liquidity"`     // avg_volume_20d
	ModelQuality   float64  `json:"model_quality"` // 0.0 ~ 1.0
	Reasons        []string `json:"reasons"`       // ordered provenance trail
}

// WithReasons returns a copy of the candidate with extra reasons appended.
// Candidates are treated as immutable after construction; the gate produces
// copies instead of mutating.
func (c Candidate) WithReasons(extra ...string) Candidate {
	reasons := make([]string, 0, len(c.Reasons)+len(extra))
	reasons = append(reasons, c.Reasons...)
	reasons = append(reasons, extra...)
	c.Reasons = reasons
	return c
}

// Score is the Sharpe-like ranking statistic expected_return / risk
func (c Candidate) Score() float64 {
	risk := c.Risk
	if risk < 1e-12 {
		risk = 1e-12
	}
	return c.ExpectedReturn / risk
}

// GatingConfig holds the fixed eligibility thresholds
// Process-wide defaults; may be overridden per call.
type GatingConfig struct {
	MinAvgVolume20D  float64 `json:"min_avg_volume_20d"`
	MinModelQuality  float64 `json:"min_model_quality"`
	MinSignalToNoise float64 `json:"min_signal_to_noise"` // |expected_return| / risk must be >= this
}

// DefaultGatingConfig returns the default policy thresholds
func DefaultGatingConfig() GatingConfig {
	return GatingConfig{
		MinAvgVolume20D:  50_000,
		MinModelQuality:  0.65,
		MinSignalToNoise: 0.15,
	}
}

// GatedResult partitions candidates into kept (sorted by score descending)
// and removed (retained with reasons, never silently dropped)
type GatedResult struct {
	Kept    []Candidate `json:"kept"`
	Removed []Candidate `json:"removed"`
}
