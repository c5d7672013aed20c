package contracts

import (
	"context"
	"time"
)

// HistoryProvider loads daily OHLCV history keyed by symbol
// SSOT: symbol universe comes from here; no history at all is fatal
type HistoryProvider interface {
	LoadHistory(ctx context.Context) (map[string][]OHLCVBar, error)
}

// NewsProvider loads raw news items (evidence only)
type NewsProvider interface {
	LoadNews(ctx context.Context) ([]NewsItem, error)
}

// SentimentProvider loads scored sentiment items
type SentimentProvider interface {
	LoadSentiment(ctx context.Context) ([]SentimentItem, error)
}

// FundamentalsProvider loads long-form fundamentals records
type FundamentalsProvider interface {
	LoadFundamentals(ctx context.Context) ([]FundamentalRecord, error)
}

// ForecastProvider loads the optional external forecast bundle.
// An empty map means "no forecasts" and is not an error.
type ForecastProvider interface {
	LoadForecasts(ctx context.Context, asof time.Time, horizonDays int) (map[string]ForecastPoint, error)
}

// MacroProvider loads optional portfolio-level macro/FX context.
// Absent files yield empty slices, never errors.
type MacroProvider interface {
	LoadMacro(ctx context.Context) ([]MacroPoint, error)
	LoadUSDVND(ctx context.Context) ([]FXPoint, error)
}

// PortfolioProvider resolves the account snapshot for a user.
// The optional risk-profile override is an explicit argument resolved
// before the call, not a behavior patch on the provider.
type PortfolioProvider interface {
	GetPortfolio(ctx context.Context, userID string, riskOverride RiskProfile) (*Portfolio, error)
}

// TextOverlay is the optional annotation collaborator.
// Trust boundary: it receives the full numeric facts payload and may only
// return textual fields; the engine never lets it near a number.
type TextOverlay interface {
	Enabled() bool
	RenderTextFields(ctx context.Context, facts *FactsPayload) (*OverlayText, error)
}
