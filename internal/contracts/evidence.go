package contracts

import "time"

// OHLCVBar is one daily price bar
type OHLCVBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SymbolFeatures are the per-symbol technical features the blender consumes
type SymbolFeatures struct {
	Symbol         string  `json:"symbol"`
	LastClose      float64 `json:"last_close"`
	Return5D       float64 `json:"return_5d"`
	RealizedVol20D float64 `json:"realized_vol_20d"`
	ATR14          float64 `json:"atr_14"`
	AvgVolume20D   float64 `json:"avg_volume_20d"`
}

// NewsItem is one news headline attached to a symbol
type NewsItem struct {
	Symbol      string    `json:"symbol"`
	PublishedAt time.Time `json:"published_at"`
	Title       string    `json:"title"`
	Sapo        string    `json:"sapo"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
}

// SentimentItem is one scored news item
type SentimentItem struct {
	Symbol         string    `json:"symbol"`
	PublishedAt    time.Time `json:"published_at"`
	SentimentScore float64   `json:"sentiment_score"` // roughly -2 ~ +2
	Relevance      float64   `json:"relevance"`
	Title          string    `json:"title"`
	Reasoning      string    `json:"reasoning"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
}

// SentimentAggregate is the per-symbol sentiment over a lookback window
type SentimentAggregate struct {
	Symbol       string   `json:"symbol"`
	AvgScore     float64  `json:"avg_score"`
	AvgRelevance float64  `json:"avg_relevance"`
	N            int      `json:"n"`
	Evidence     []string `json:"evidence"`
}

// FundamentalRecord is one long-form fundamentals datapoint
type FundamentalRecord struct {
	Symbol  string  `json:"symbol"`
	Year    int     `json:"year"`
	Quarter int     `json:"quarter"`
	Metric  string  `json:"metric"` // normalized: roe, roa, p_e, p_b, ...
	Value   float64 `json:"value"`
}

// FundamentalsSnapshot is the latest lag-adjusted quarter for one symbol
type FundamentalsSnapshot struct {
	Symbol  string             `json:"symbol"`
	Year    int                `json:"year"`
	Quarter int                `json:"quarter"`
	Metrics map[string]float64 `json:"metrics"`
}

// ForecastPoint is one symbol's external model forecast
type ForecastPoint struct {
	Symbol           string    `json:"symbol"`
	AsOfDate         time.Time `json:"asof_date"`
	HorizonDays      int       `json:"horizon_days"`
	ExpectedReturn   float64   `json:"expected_return"`
	UncertaintySigma float64   `json:"uncertainty_sigma"`
	ModelQuality     float64   `json:"model_quality"` // 0.0 ~ 1.0
	Source           string    `json:"source"`
}

// MacroPoint is one quarterly macro observation (portfolio-level context)
type MacroPoint struct {
	Year    int      `json:"year"`
	Quarter int      `json:"quarter"`
	InfPct  *float64 `json:"inf_pct,omitempty"`
	GDPPct  *float64 `json:"gdp_pct,omitempty"`
	DCPct   *float64 `json:"dc_pct,omitempty"`
}

// FXPoint is one USD/VND daily close
type FXPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
