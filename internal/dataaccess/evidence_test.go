package dataaccess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnquant/advisor/internal/contracts"
)

func TestAggregateRecentSentiment(t *testing.T) {
	asof := time.Date(2025, 12, 10, 23, 59, 0, 0, time.UTC)

	items := []contracts.SentimentItem{
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -1), SentimentScore: 2.0, Relevance: 0.9, Title: "newest", Source: "cafef"},
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -3), SentimentScore: 1.0, Relevance: 0.7, Title: "older", Source: "cafef"},
		// outside the 7d lookback
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -10), SentimentScore: -2.0, Relevance: 0.9, Title: "stale", Source: "cafef"},
		// future item never counts
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, 1), SentimentScore: -2.0, Relevance: 0.9, Title: "future", Source: "cafef"},
	}

	agg := AggregateRecentSentiment(items, asof, 7, 3)
	require.Contains(t, agg, "FPT")

	a := agg["FPT"]
	assert.Equal(t, 2, a.N)
	assert.InDelta(t, 1.5, a.AvgScore, 1e-12)
	assert.InDelta(t, 0.8, a.AvgRelevance, 1e-12)
	require.Len(t, a.Evidence, 2)
	assert.Contains(t, a.Evidence[0], "newest") // newest first
}

func TestAggregateRecentSentimentEmptyWindow(t *testing.T) {
	asof := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	items := []contracts.SentimentItem{
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -30), SentimentScore: 1.0},
	}

	agg := AggregateRecentSentiment(items, asof, 7, 3)
	assert.Empty(t, agg)
}

func TestPickRecentNewsEvidence(t *testing.T) {
	asof := time.Date(2025, 12, 10, 23, 59, 0, 0, time.UTC)

	items := []contracts.NewsItem{
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -1), Title: "a", Source: "vnexpress"},
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -2), Title: "b", Source: "vnexpress"},
		{Symbol: "FPT", PublishedAt: asof.AddDate(0, 0, -3), Title: "c", Source: "vnexpress"},
	}

	ev := PickRecentNewsEvidence(items, asof, 7, 2)
	require.Contains(t, ev, "FPT")
	require.Len(t, ev["FPT"], 2) // capped per symbol
	assert.Contains(t, ev["FPT"][0], "a")
	assert.Contains(t, ev["FPT"][1], "b")
}

func TestLatestFundamentalsSnapshot(t *testing.T) {
	asof := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC) // Q4 2025

	records := []contracts.FundamentalRecord{
		{Symbol: "FPT", Year: 2025, Quarter: 3, Metric: "roe", Value: 0.21},
		{Symbol: "FPT", Year: 2025, Quarter: 3, Metric: "p_e", Value: 12.5},
		{Symbol: "FPT", Year: 2025, Quarter: 2, Metric: "roe", Value: 0.19},
		// future quarter never picked
		{Symbol: "FPT", Year: 2026, Quarter: 1, Metric: "roe", Value: 0.30},
	}

	snap := LatestFundamentalsSnapshot(records, asof, 0, nil)
	require.Contains(t, snap, "FPT")
	assert.Equal(t, 2025, snap["FPT"].Year)
	assert.Equal(t, 3, snap["FPT"].Quarter)
	assert.Equal(t, 0.21, snap["FPT"].Metrics["roe"])
}

func TestLatestFundamentalsSnapshotLag(t *testing.T) {
	asof := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC) // Q4 2025

	records := []contracts.FundamentalRecord{
		{Symbol: "FPT", Year: 2025, Quarter: 3, Metric: "roe", Value: 0.21},
		{Symbol: "FPT", Year: 2025, Quarter: 2, Metric: "roe", Value: 0.19},
	}

	// 2-quarter lag pushes the cutoff back to Q2 2025
	snap := LatestFundamentalsSnapshot(records, asof, 2, nil)
	require.Contains(t, snap, "FPT")
	assert.Equal(t, 2, snap["FPT"].Quarter)
	assert.Equal(t, 0.19, snap["FPT"].Metrics["roe"])
}

func TestLatestFundamentalsSnapshotPreferredMetrics(t *testing.T) {
	asof := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)

	records := []contracts.FundamentalRecord{
		{Symbol: "FPT", Year: 2025, Quarter: 3, Metric: "roe", Value: 0.21},
		{Symbol: "FPT", Year: 2025, Quarter: 3, Metric: "obscure_metric", Value: 1.0},
	}

	snap := LatestFundamentalsSnapshot(records, asof, 0, []string{"roe", "roa", "p_e", "p_b"})
	require.Contains(t, snap, "FPT")
	assert.Contains(t, snap["FPT"].Metrics, "roe")
	assert.NotContains(t, snap["FPT"].Metrics, "obscure_metric")
}
