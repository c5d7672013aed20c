package dataaccess

import (
	"fmt"
	"sort"
	"time"

	"github.com/vnquant/advisor/internal/contracts"
)

// Sentiment aggregation and news evidence extraction over a lookback
// window ending at the as-of timestamp.

// AggregateRecentSentiment aggregates sentiment scores per symbol in the
// recent lookback window. Evidence strings are short and UI-friendly.
func AggregateRecentSentiment(
	items []contracts.SentimentItem,
	asof time.Time,
	lookbackDays int,
	maxEvidence int,
) map[string]contracts.SentimentAggregate {
	start := asof.AddDate(0, 0, -lookbackDays)

	bySym := make(map[string][]contracts.SentimentItem)
	for _, it := range items {
		if it.PublishedAt.Before(start) || it.PublishedAt.After(asof) {
			continue
		}
		bySym[it.Symbol] = append(bySym[it.Symbol], it)
	}

	out := make(map[string]contracts.SentimentAggregate, len(bySym))
	for sym, group := range bySym {
		if len(group) == 0 {
			continue
		}
		// newest first
		sort.Slice(group, func(i, j int) bool {
			return group[i].PublishedAt.After(group[j].PublishedAt)
		})

		sumScore, sumRel := 0.0, 0.0
		for _, it := range group {
			sumScore += it.SentimentScore
			sumRel += it.Relevance
		}

		evidence := make([]string, 0, maxEvidence)
		for _, it := range group {
			if len(evidence) >= maxEvidence {
				break
			}
			ts := it.PublishedAt.Format("2006-01-02 15:04")
			evidence = append(evidence, fmt.Sprintf("[%s] %s %s: %s (sent=%g, rel=%g)",
				sym, ts, it.Source, it.Title, it.SentimentScore, it.Relevance))
		}

		out[sym] = contracts.SentimentAggregate{
			Symbol:       sym,
			AvgScore:     sumScore / float64(len(group)),
			AvgRelevance: sumRel / float64(len(group)),
			N:            len(group),
			Evidence:     evidence,
		}
	}
	return out
}

// PickRecentNewsEvidence selects the newest headlines per symbol inside the
// lookback window, formatted as evidence strings.
func PickRecentNewsEvidence(
	items []contracts.NewsItem,
	asof time.Time,
	lookbackDays int,
	maxItemsPerSymbol int,
) map[string][]string {
	start := asof.AddDate(0, 0, -lookbackDays)

	bySym := make(map[string][]contracts.NewsItem)
	for _, it := range items {
		if it.PublishedAt.Before(start) || it.PublishedAt.After(asof) {
			continue
		}
		bySym[it.Symbol] = append(bySym[it.Symbol], it)
	}

	out := make(map[string][]string, len(bySym))
	for sym, group := range bySym {
		sort.Slice(group, func(i, j int) bool {
			return group[i].PublishedAt.After(group[j].PublishedAt)
		})

		ev := make([]string, 0, maxItemsPerSymbol)
		for _, it := range group {
			if len(ev) >= maxItemsPerSymbol {
				break
			}
			ts := it.PublishedAt.Format("2006-01-02 15:04")
			ev = append(ev, fmt.Sprintf("[%s] %s %s: %s", sym, ts, it.Source, it.Title))
		}
		out[sym] = ev
	}
	return out
}
