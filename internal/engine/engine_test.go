package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/logger"
)

// fakeData backs every provider interface from memory
type fakeData struct {
	history      map[string][]contracts.OHLCVBar
	news         []contracts.NewsItem
	sentiment    []contracts.SentimentItem
	fundamentals []contracts.FundamentalRecord
	forecasts    map[string]contracts.ForecastPoint
	macro        []contracts.MacroPoint
	fx           []contracts.FXPoint
	portfolio    *contracts.Portfolio
}

func (f *fakeData) LoadHistory(context.Context) (map[string][]contracts.OHLCVBar, error) {
	return f.history, nil
}
func (f *fakeData) LoadNews(context.Context) ([]contracts.NewsItem, error) { return f.news, nil }
func (f *fakeData) LoadSentiment(context.Context) ([]contracts.SentimentItem, error) {
	return f.sentiment, nil
}
func (f *fakeData) LoadFundamentals(context.Context) ([]contracts.FundamentalRecord, error) {
	return f.fundamentals, nil
}
func (f *fakeData) LoadForecasts(context.Context, time.Time, int) (map[string]contracts.ForecastPoint, error) {
	return f.forecasts, nil
}
func (f *fakeData) LoadMacro(context.Context) ([]contracts.MacroPoint, error) { return f.macro, nil }
func (f *fakeData) LoadUSDVND(context.Context) ([]contracts.FXPoint, error)  { return f.fx, nil }
func (f *fakeData) GetPortfolio(_ context.Context, _ string, override contracts.RiskProfile) (*contracts.Portfolio, error) {
	p := *f.portfolio
	if override != "" {
		p.RiskProfile = override
	}
	return &p, nil
}

// fakeOverlay rewrites text fields; optionally fails
type fakeOverlay struct {
	enabled bool
	fail    bool
}

func (o *fakeOverlay) Enabled() bool { return o.enabled }
func (o *fakeOverlay) RenderTextFields(_ context.Context, facts *contracts.FactsPayload) (*contracts.OverlayText, error) {
	if o.fail {
		return nil, errors.New("renderer unavailable")
	}
	perSymbol := make(map[string]contracts.OverlaySymbolText)
	for _, a := range facts.RecommendedActions {
		perSymbol[a.Symbol] = contracts.OverlaySymbolText{
			EntryRule:    "custom entry for " + a.Symbol,
			Invalidation: []string{"custom invalidation"},
		}
	}
	return &contracts.OverlayText{Notes: "custom notes", PerSymbol: perSymbol}, nil
}

// trendBars builds n daily bars with a repeating return cycle
func trendBars(n int, start float64, rets []float64, volume float64) []contracts.OHLCVBar {
	bars := make([]contracts.OHLCVBar, 0, n)
	day := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	close := start
	for i := 0; i < n; i++ {
		close *= 1 + rets[i%len(rets)]
		bars = append(bars, contracts.OHLCVBar{
			Date:   day.AddDate(0, 0, i),
			Open:   close,
			High:   close * 1.01,
			Low:    close * 0.99,
			Close:  close,
			Volume: volume,
		})
	}
	return bars
}

func testData() *fakeData {
	return &fakeData{
		history: map[string][]contracts.OHLCVBar{
			// rising names with real variance and good liquidity
			"AAA": trendBars(30, 100, []float64{0.02, -0.005}, 100_000),
			"BBB": trendBars(30, 50, []float64{0.015, -0.004}, 120_000),
			// held name in steady decline
			"BAD": trendBars(30, 80, []float64{-0.02, 0.005}, 90_000),
		},
		portfolio: &contracts.Portfolio{
			Cash: 250_000_000,
			Positions: []contracts.Position{
				{Symbol: "BAD", Qty: 200, AvgCost: 95_000},
			},
			Constraints: contracts.AllocationConstraints{
				MaxWeightPerStock: 0.25,
				MinCashWeight:     0.15,
				MaxPositions:      8,
			},
			RiskProfile: contracts.RiskModerate,
		},
	}
}

// permissive thresholds keep the tests independent of per-symbol hash quality
func permissiveGating() contracts.GatingConfig {
	return contracts.GatingConfig{MinAvgVolume20D: 0, MinModelQuality: 0, MinSignalToNoise: 0}
}

func newTestEngine(data *fakeData, ov contracts.TextOverlay) *Engine {
	return NewWithGating(Deps{
		History:      data,
		News:         data,
		Sentiment:    data,
		Fundamentals: data,
		Forecasts:    data,
		Macro:        data,
		Portfolios:   data,
		Overlay:      ov,
		Logger:       logger.NewNop(),
	}, permissiveGating())
}

func defaultRequest() Request {
	return Request{UserID: "demo", HorizonDays: 7, TopN: 3, ForecastSource: "stub"}
}

func TestRecommendBuyAndSell(t *testing.T) {
	e := newTestEngine(testData(), &fakeOverlay{})

	out, err := e.Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, 7, out.HorizonDays)

	buys := map[string]contracts.RecommendedAction{}
	sells := map[string]contracts.RecommendedAction{}
	total := out.CashWeight
	for _, a := range out.RecommendedActions {
		switch a.Action {
		case contracts.ActionBuy:
			buys[a.Symbol] = a
			total += a.TargetWeight
		case contracts.ActionSell:
			sells[a.Symbol] = a
		}
	}

	// a symbol is never both bought and sold
	for sym := range sells {
		assert.NotContains(t, buys, sym)
	}

	assert.Contains(t, buys, "AAA")
	assert.Contains(t, buys, "BBB")
	require.Contains(t, sells, "BAD")
	assert.NotContains(t, buys, "BAD")

	// budget conserved across buys plus cash
	assert.InDelta(t, 1.0, total, 1e-6)

	sell := sells["BAD"]
	assert.Equal(t, 0.0, sell.TargetWeight)
	assert.LessOrEqual(t, sell.ExpectedReturn, -0.01)
	assert.Contains(t, sell.Evidence[0], "Held position qty=200")

	// buys ordered by target weight, best first
	actions := out.RecommendedActions
	for i := 1; i < len(actions); i++ {
		if actions[i-1].Action == contracts.ActionBuy && actions[i].Action == contracts.ActionBuy {
			assert.GreaterOrEqual(t, actions[i-1].TargetWeight, actions[i].TargetWeight)
		}
	}
}

func TestRecommendDeterministic(t *testing.T) {
	data := testData()
	first, err := newTestEngine(data, &fakeOverlay{}).Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)
	second, err := newTestEngine(data, &fakeOverlay{}).Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecommendNoHistory(t *testing.T) {
	data := testData()
	data.history = map[string][]contracts.OHLCVBar{}

	_, err := newTestEngine(data, &fakeOverlay{}).Recommend(context.Background(), defaultRequest())
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestRecommendRequestValidation(t *testing.T) {
	e := newTestEngine(testData(), &fakeOverlay{})

	_, err := e.Recommend(context.Background(), Request{UserID: "demo", HorizonDays: 0, TopN: 3})
	assert.Error(t, err)

	_, err = e.Recommend(context.Background(), Request{UserID: "demo", HorizonDays: 400, TopN: 3})
	assert.Error(t, err)

	_, err = e.Recommend(context.Background(), Request{UserID: "", HorizonDays: 7, TopN: 3})
	assert.Error(t, err)
}

func TestOverlayEditsTextOnly(t *testing.T) {
	data := testData()

	plain, err := newTestEngine(data, &fakeOverlay{enabled: false}).Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)
	overlaid, err := newTestEngine(data, &fakeOverlay{enabled: true}).Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)

	require.Equal(t, len(plain.RecommendedActions), len(overlaid.RecommendedActions))
	for i := range plain.RecommendedActions {
		p, o := plain.RecommendedActions[i], overlaid.RecommendedActions[i]

		// every numeric field is untouched by the overlay
		assert.Equal(t, p.Symbol, o.Symbol)
		assert.Equal(t, p.Action, o.Action)
		assert.Equal(t, p.TargetWeight, o.TargetWeight)
		assert.Equal(t, p.Confidence, o.Confidence)
		assert.Equal(t, p.ExpectedReturn, o.ExpectedReturn)
		assert.Equal(t, p.UncertaintyBand, o.UncertaintyBand)
		assert.Equal(t, p.RiskControls, o.RiskControls)
		assert.Equal(t, p.OrderPlan.OrderType, o.OrderPlan.OrderType)
		assert.Equal(t, p.OrderPlan.Ladder, o.OrderPlan.Ladder)

		// text fields rewritten
		assert.Equal(t, "custom entry for "+o.Symbol, o.OrderPlan.EntryRule)
		assert.Equal(t, []string{"custom invalidation"}, o.Invalidation)
	}
	assert.Equal(t, plain.CashWeight, overlaid.CashWeight)
	assert.Contains(t, overlaid.Notes, "custom notes")
	assert.Contains(t, plain.Notes, "LLM disabled")
}

func TestOverlayFailureFallsBackToTemplate(t *testing.T) {
	out, err := newTestEngine(testData(), &fakeOverlay{enabled: true, fail: true}).
		Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)

	// failed overlay degrades to the deterministic template, never an error
	assert.Contains(t, out.Notes, "rule-based templates")
	for _, a := range out.RecommendedActions {
		assert.NotEmpty(t, a.OrderPlan.EntryRule)
		assert.NotEmpty(t, a.Invalidation)
	}
}

func TestRecommendNotesCarryMacroTail(t *testing.T) {
	inf := 0.0295
	gdp := 0.065
	data := testData()
	data.macro = []contracts.MacroPoint{
		{Year: 2025, Quarter: 2, InfPct: &inf},
		{Year: 2025, Quarter: 3, InfPct: &inf, GDPPct: &gdp},
	}
	data.fx = []contracts.FXPoint{
		{Date: time.Date(2025, 12, 9, 0, 0, 0, 0, time.UTC), Value: 25_350},
		{Date: time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC), Value: 25_400},
	}

	out, err := newTestEngine(data, &fakeOverlay{}).Recommend(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Contains(t, out.Notes, "Macro: Y2025Q3 INF=0.0295 GDP=0.065 DC=-")
	assert.Contains(t, out.Notes, "USDVND last=2025-12-10 value=25400.00")
}

func TestRecommendForecastPreferred(t *testing.T) {
	data := testData()
	data.forecasts = map[string]contracts.ForecastPoint{
		"AAA": {Symbol: "AAA", ExpectedReturn: 0.03, UncertaintySigma: 0.01, ModelQuality: 0.8, HorizonDays: 7},
	}

	req := defaultRequest()
	req.ForecastSource = "artifacts"

	out, err := newTestEngine(data, &fakeOverlay{}).Recommend(context.Background(), req)
	require.NoError(t, err)

	var aaa *contracts.RecommendedAction
	for i := range out.RecommendedActions {
		if out.RecommendedActions[i].Symbol == "AAA" {
			aaa = &out.RecommendedActions[i]
		}
	}
	require.NotNil(t, aaa)

	// sigma-based band is symmetric around the blended expected return
	er := aaa.ExpectedReturn
	assert.InDelta(t, er, aaa.UncertaintyBand.P50, 1e-12)
	assert.InDelta(t, er-aaa.UncertaintyBand.P10, aaa.UncertaintyBand.P90-er, 1e-9)
	assert.Greater(t, aaa.UncertaintyBand.P90, aaa.UncertaintyBand.P10)
}

func TestRecommendForecastZeroSigmaCollapsesBand(t *testing.T) {
	data := testData()
	data.forecasts = map[string]contracts.ForecastPoint{
		"AAA": {Symbol: "AAA", ExpectedReturn: 0.03, UncertaintySigma: 0, ModelQuality: 0.8, HorizonDays: 7},
	}

	req := defaultRequest()
	req.ForecastSource = "artifacts"

	out, err := newTestEngine(data, &fakeOverlay{}).Recommend(context.Background(), req)
	require.NoError(t, err)

	var aaa *contracts.RecommendedAction
	for i := range out.RecommendedActions {
		if out.RecommendedActions[i].Symbol == "AAA" {
			aaa = &out.RecommendedActions[i]
		}
	}
	require.NotNil(t, aaa)

	// the forecast still owns the band: sigma 0 means a point estimate,
	// not a fallback to the realized-vol band
	er := aaa.ExpectedReturn
	assert.Equal(t, er, aaa.UncertaintyBand.P10)
	assert.Equal(t, er, aaa.UncertaintyBand.P50)
	assert.Equal(t, er, aaa.UncertaintyBand.P90)
}
