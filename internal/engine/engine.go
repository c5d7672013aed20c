package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vnquant/advisor/internal/allocation"
	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/internal/dataaccess"
	"github.com/vnquant/advisor/internal/execution"
	"github.com/vnquant/advisor/internal/gate"
	"github.com/vnquant/advisor/internal/overlay"
	"github.com/vnquant/advisor/internal/signal"
	"github.com/vnquant/advisor/pkg/logger"
)

// ErrNoHistory means the price history source produced nothing at all.
// Without bars there is no as-of date and no features: the run cannot
// proceed and must not degrade into an empty recommendation.
var ErrNoHistory = errors.New("no history loaded")

// Evidence window defaults
const (
	sentimentLookbackDays = 7
	sentimentMaxEvidence  = 3
	newsLookbackDays      = 7
	newsMaxPerSymbol      = 2

	// expected return at or below this flags a held name for exit
	sellThreshold = -0.01
)

// preferredFundMetrics bounds the fundamentals snapshot to the metrics the
// blender and evidence strings actually use, in display order
var preferredFundMetrics = []string{"roe", "roa", "p_e", "p_b", "eps_vnd", "bvps_vnd"}

// Deps wires the engine's collaborators. All providers are required;
// Overlay may be the disabled implementation but never nil.
type Deps struct {
	History      contracts.HistoryProvider
	News         contracts.NewsProvider
	Sentiment    contracts.SentimentProvider
	Fundamentals contracts.FundamentalsProvider
	Forecasts    contracts.ForecastProvider
	Macro        contracts.MacroProvider
	Portfolios   contracts.PortfolioProvider
	Overlay      contracts.TextOverlay
	Logger       *logger.Logger
}

// Request is one recommendation invocation
type Request struct {
	UserID          string
	HorizonDays     int
	TopN            int
	FundLagQuarters int
	ForecastSource  string // "stub" or "artifacts"
	RiskOverride    contracts.RiskProfile
}

// Engine runs the end-to-end deterministic pipeline:
// load -> features -> blend -> gate -> allocate -> execution rules ->
// (text overlay) -> validated output.
// SSOT: action assembly and the overlay trust boundary live here.
type Engine struct {
	deps      Deps
	blender   *signal.Blender
	gate      *gate.Gate
	allocator *allocation.Allocator
	logger    *logger.Logger
}

// New creates an engine with the default gating thresholds
func New(deps Deps) *Engine {
	return NewWithGating(deps, contracts.DefaultGatingConfig())
}

// NewWithGating creates an engine with explicit gating thresholds
func NewWithGating(deps Deps, gating contracts.GatingConfig) *Engine {
	return &Engine{
		deps:      deps,
		blender:   signal.NewBlender(deps.Logger),
		gate:      gate.New(gating, deps.Logger),
		allocator: allocation.New(deps.Logger),
		logger:    deps.Logger,
	}
}

// Recommend runs the full pipeline for one user and horizon.
// The same inputs always produce byte-identical output.
func (e *Engine) Recommend(ctx context.Context, req Request) (*contracts.RecommendationOutput, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	portfolio, err := e.deps.Portfolios.GetPortfolio(ctx, req.UserID, req.RiskOverride)
	if err != nil {
		return nil, fmt.Errorf("portfolio lookup failed: %w", err)
	}

	history, err := e.deps.History.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("history load failed: %w", err)
	}
	if len(history) == 0 {
		return nil, ErrNoHistory
	}

	asof := asOfFromHistory(history)
	feats := dataaccess.ComputeSymbolFeatures(history)

	newsItems, err := e.deps.News.LoadNews(ctx)
	if err != nil {
		return nil, fmt.Errorf("news load failed: %w", err)
	}
	sentItems, err := e.deps.Sentiment.LoadSentiment(ctx)
	if err != nil {
		return nil, fmt.Errorf("sentiment load failed: %w", err)
	}
	sentAgg := dataaccess.AggregateRecentSentiment(sentItems, asof, sentimentLookbackDays, sentimentMaxEvidence)
	newsEv := dataaccess.PickRecentNewsEvidence(newsItems, asof, newsLookbackDays, newsMaxPerSymbol)

	macro, err := e.deps.Macro.LoadMacro(ctx)
	if err != nil {
		return nil, fmt.Errorf("macro load failed: %w", err)
	}
	usdvnd, err := e.deps.Macro.LoadUSDVND(ctx)
	if err != nil {
		return nil, fmt.Errorf("usdvnd load failed: %w", err)
	}

	fundRecords, err := e.deps.Fundamentals.LoadFundamentals(ctx)
	if err != nil {
		return nil, fmt.Errorf("fundamentals load failed: %w", err)
	}
	fundSnap := dataaccess.LatestFundamentalsSnapshot(fundRecords, asof, req.FundLagQuarters, preferredFundMetrics)

	forecasts := map[string]contracts.ForecastPoint{}
	if strings.EqualFold(req.ForecastSource, "artifacts") {
		forecasts, err = e.deps.Forecasts.LoadForecasts(ctx, asof, req.HorizonDays)
		if err != nil {
			return nil, fmt.Errorf("forecast load failed: %w", err)
		}
	}

	candidates := e.blender.Build(signal.Inputs{
		Features:        feats,
		Sentiment:       sentAgg,
		Fundamentals:    fundSnap,
		Forecasts:       forecasts,
		HorizonDays:     req.HorizonDays,
		FundLagQuarters: req.FundLagQuarters,
	})

	gated := e.gate.Apply(candidates)

	allocInputs := make([]contracts.AllocationInput, 0, len(gated.Kept))
	for _, c := range gated.Kept {
		risk := c.Risk
		if risk < 1e-8 {
			risk = 1e-8
		}
		allocInputs = append(allocInputs, contracts.AllocationInput{
			Symbol:         c.Symbol,
			ExpectedReturn: c.ExpectedReturn,
			Risk:           risk,
		})
	}
	alloc := e.allocator.Allocate(allocInputs, req.TopN, portfolio.Constraints)

	actions := e.buildBuyActions(alloc, gated.Kept, feats, fundSnap, sentAgg, newsEv, forecasts, portfolio, asof, req.HorizonDays)
	actions = append(actions, e.buildSellActions(alloc, candidates, feats, portfolio, req.HorizonDays)...)

	facts := &contracts.FactsPayload{
		AsOf: asof.Format("2006-01-02T15:04:05"),
		Portfolio: contracts.FactsPortfolio{
			RiskProfile: portfolio.RiskProfile,
			Constraints: portfolio.Constraints,
		},
		Gating: contracts.FactsGating{
			Kept:    gated.Kept,
			Removed: gated.Removed,
		},
		Allocation:         alloc,
		RecommendedActions: actions,
		MacroTail:          tailMacro(macro, 2),
		USDVNDTail:         tailFX(usdvnd, 2),
	}

	notes := e.applyOverlay(ctx, facts, actions)

	if len(macro) > 0 {
		m := macro[len(macro)-1]
		notes += fmt.Sprintf(" | Macro: Y%dQ%d INF=%s GDP=%s DC=%s",
			m.Year, m.Quarter, fmtOptFloat(m.InfPct), fmtOptFloat(m.GDPPct), fmtOptFloat(m.DCPct))
	}
	if len(usdvnd) > 0 {
		last := usdvnd[len(usdvnd)-1]
		notes += fmt.Sprintf(" | USDVND last=%s value=%.2f", last.Date.Format("2006-01-02"), last.Value)
	}

	out := &contracts.RecommendationOutput{
		HorizonDays:        req.HorizonDays,
		RecommendedActions: actions,
		CashWeight:         alloc.CashWeight,
		Notes:              notes,
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("output validation failed: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"user_id":      req.UserID,
		"horizon_days": req.HorizonDays,
		"actions":      len(actions),
		"cash_weight":  alloc.CashWeight,
	}).Info("Recommendation generated")

	return out, nil
}

func validateRequest(req Request) error {
	if req.HorizonDays < 1 || req.HorizonDays > 365 {
		return fmt.Errorf("horizon_days must be in [1,365], got %d", req.HorizonDays)
	}
	if req.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// buildBuyActions emits one buy per allocated symbol, largest weight first
func (e *Engine) buildBuyActions(
	alloc contracts.AllocationResult,
	kept []contracts.Candidate,
	feats map[string]contracts.SymbolFeatures,
	fundSnap map[string]contracts.FundamentalsSnapshot,
	sentAgg map[string]contracts.SentimentAggregate,
	newsEv map[string][]string,
	forecasts map[string]contracts.ForecastPoint,
	portfolio *contracts.Portfolio,
	asof time.Time,
	horizonDays int,
) []contracts.RecommendedAction {
	keptBySymbol := make(map[string]contracts.Candidate, len(kept))
	for _, c := range kept {
		keptBySymbol[c.Symbol] = c
	}

	symbols := make([]string, 0, len(alloc.Weights))
	for sym := range alloc.Weights {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool {
		wi, wj := alloc.Weights[symbols[i]], alloc.Weights[symbols[j]]
		if wi != wj {
			return wi > wj
		}
		return symbols[i] < symbols[j]
	})

	actions := make([]contracts.RecommendedAction, 0, len(symbols))
	for _, sym := range symbols {
		f, ok := feats[sym]
		if !ok {
			continue
		}
		c, ok := keptBySymbol[sym]
		if !ok {
			continue
		}

		spread := dataaccess.SpreadProxy(f.AvgVolume20D, f.RealizedVol20D)

		// an available forecast owns the band, even with sigma 0
		// (the band then collapses to the point estimate)
		var band contracts.UncertaintyBand
		if fp, ok := forecasts[sym]; ok {
			band = dataaccess.UncertaintyBandFromSigma(c.ExpectedReturn, fp.UncertaintySigma, horizonDays)
		} else {
			band = dataaccess.UncertaintyBandFromVol(c.ExpectedReturn, f.RealizedVol20D, horizonDays)
		}

		evidence := []string{
			fmt.Sprintf("[%s] Price asof=%s close=%.2f", sym, asof.Format("2006-01-02"), f.LastClose),
			fmt.Sprintf("[%s] Momentum 5d=%.4f; vol20d=%.4f; ATR14=%.4f", sym, f.Return5D, f.RealizedVol20D, f.ATR14),
		}
		if snap, ok := fundSnap[sym]; ok && len(snap.Metrics) > 0 {
			evidence = append(evidence, fundamentalsEvidence(sym, snap))
		}
		if agg, ok := sentAgg[sym]; ok {
			evidence = append(evidence, agg.Evidence...)
		}
		if ev, ok := newsEv[sym]; ok {
			evidence = append(evidence, ev...)
		}

		risk := c.Risk
		if risk < 1e-8 {
			risk = 1e-8
		}

		actions = append(actions, contracts.RecommendedAction{
			Symbol:          sym,
			Action:          contracts.ActionBuy,
			TargetWeight:    alloc.Weights[sym],
			Confidence:      confidence(c.ExpectedReturn, risk, c.ModelQuality),
			ExpectedReturn:  c.ExpectedReturn,
			UncertaintyBand: band,
			OrderPlan:       execution.BuildOrderPlan(contracts.ActionBuy, f.LastClose, spread, contracts.TIFDay),
			RiskControls:    execution.BuildRiskControls(contracts.ActionBuy, f.LastClose, f.ATR14, portfolio.RiskProfile),
			Evidence:        evidence,
			Invalidation: []string{
				"Nếu đóng cửa < (entry - k*ATR) theo rule stop-loss.",
				"Nếu vol regime tăng mạnh (vol20d spike) làm giảm xác suất thesis.",
			},
		})
	}
	return actions
}

// buildSellActions flags held names that are not buy targets and whose
// blended expected return is clearly negative. A held symbol never appears
// as both buy and sell.
func (e *Engine) buildSellActions(
	alloc contracts.AllocationResult,
	candidates []contracts.Candidate,
	feats map[string]contracts.SymbolFeatures,
	portfolio *contracts.Portfolio,
	horizonDays int,
) []contracts.RecommendedAction {
	bySymbol := make(map[string]contracts.Candidate, len(candidates))
	for _, c := range candidates {
		bySymbol[c.Symbol] = c
	}

	held := make([]contracts.Position, len(portfolio.Positions))
	copy(held, portfolio.Positions)
	sort.Slice(held, func(i, j int) bool { return held[i].Symbol < held[j].Symbol })

	var actions []contracts.RecommendedAction
	for _, pos := range held {
		sym := strings.ToUpper(pos.Symbol)
		f, ok := feats[sym]
		if !ok {
			continue
		}
		c, ok := bySymbol[sym]
		if !ok {
			continue
		}
		if _, isBuy := alloc.Weights[sym]; isBuy {
			continue
		}
		if c.ExpectedReturn > sellThreshold {
			continue
		}

		spread := dataaccess.SpreadProxy(f.AvgVolume20D, f.RealizedVol20D)
		band := dataaccess.UncertaintyBandFromVol(c.ExpectedReturn, f.RealizedVol20D, horizonDays)

		risk := c.Risk
		if risk < 1e-8 {
			risk = 1e-8
		}

		actions = append(actions, contracts.RecommendedAction{
			Symbol:          sym,
			Action:          contracts.ActionSell,
			TargetWeight:    0.0,
			Confidence:      confidence(c.ExpectedReturn, risk, c.ModelQuality),
			ExpectedReturn:  c.ExpectedReturn,
			UncertaintyBand: band,
			OrderPlan:       execution.BuildOrderPlan(contracts.ActionSell, f.LastClose, spread, contracts.TIFDay),
			RiskControls:    execution.BuildRiskControls(contracts.ActionSell, f.LastClose, f.ATR14, portfolio.RiskProfile),
			Evidence: []string{
				fmt.Sprintf("[%s] Held position qty=%.0f avg_cost=%.2f", sym, pos.Qty, pos.AvgCost),
				fmt.Sprintf("[%s] Weak signal expected_return=%.4f (mom+sentiment stub).", sym, c.ExpectedReturn),
			},
			Invalidation: []string{
				"Nếu tín hiệu đảo chiều tích cực (momentum + sentiment) trong 3-5 phiên.",
			},
		})
	}
	return actions
}

// applyOverlay runs the optional text overlay and merges its edits into the
// actions. Only entry_rule, invalidation and notes can change; any overlay
// failure falls back to the deterministic template so a run never fails on
// text rendering.
func (e *Engine) applyOverlay(ctx context.Context, facts *contracts.FactsPayload, actions []contracts.RecommendedAction) string {
	if !e.deps.Overlay.Enabled() {
		return overlay.DisabledNotes
	}

	text, err := e.deps.Overlay.RenderTextFields(ctx, facts)
	if err != nil {
		e.logger.WithError(err).Warn("Overlay rendering failed, using template fallback")
		text = overlay.TemplateText(facts)
	}

	for i := range actions {
		st, ok := text.PerSymbol[actions[i].Symbol]
		if !ok {
			continue
		}
		if st.EntryRule != "" {
			actions[i].OrderPlan.EntryRule = st.EntryRule
		}
		if len(st.Invalidation) > 0 {
			actions[i].Invalidation = st.Invalidation
		}
	}
	return text.Notes
}

// confidence squashes signal-to-noise and model quality into [0,1].
// sn of 0.5 alone maps to a 0.5 base before the quality blend.
func confidence(expectedReturn, risk, modelQuality float64) float64 {
	if risk <= 0 {
		return 0.1
	}
	sn := expectedReturn / risk
	if sn < 0 {
		sn = -sn
	}
	base := sn
	if base > 1 {
		base = 1
	}
	conf := 0.4*modelQuality + 0.6*base
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

// asOfFromHistory resolves the as-of instant as the end of the latest bar
// date across all symbols
func asOfFromHistory(history map[string][]contracts.OHLCVBar) time.Time {
	var last time.Time
	for _, bars := range history {
		if len(bars) == 0 {
			continue
		}
		d := bars[len(bars)-1].Date
		if d.After(last) {
			last = d
		}
	}
	if last.IsZero() {
		return time.Now().UTC()
	}
	return time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 0, 0, last.Location())
}

// fundamentalsEvidence renders a short key=value line in preferred-metric
// order so evidence strings are stable across runs
func fundamentalsEvidence(sym string, snap contracts.FundamentalsSnapshot) string {
	parts := make([]string, 0, len(preferredFundMetrics))
	for _, k := range preferredFundMetrics {
		if v, ok := snap.Metrics[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.4g", k, v))
		}
	}
	return fmt.Sprintf("[%s] Fundamentals (Y%dQ%d): %s", sym, snap.Year, snap.Quarter, strings.Join(parts, ", "))
}

func fmtOptFloat(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

func tailMacro(points []contracts.MacroPoint, n int) []contracts.MacroPoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func tailFX(points []contracts.FXPoint, n int) []contracts.FXPoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}
