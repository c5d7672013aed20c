package dataaccess

import (
	"time"

	"github.com/vnquant/advisor/internal/contracts"
)

// Fundamentals snapshot selection: latest quarter at or before the as-of
// quarter minus a reporting lag. The lag keeps backtests honest about when
// quarterly statements actually became available.

func quarterIndex(year, quarter int) int {
	return year*4 + (quarter - 1)
}

func asofToQuarter(asof time.Time) (int, int) {
	q := (int(asof.Month())-1)/3 + 1
	return asof.Year(), q
}

// LatestFundamentalsSnapshot picks, per symbol, the latest quarter whose
// index is <= the as-of quarter minus lagQuarters. When preferredMetrics is
// non-empty only those (normalized) metric names are kept.
func LatestFundamentalsSnapshot(
	records []contracts.FundamentalRecord,
	asofDate time.Time,
	lagQuarters int,
	preferredMetrics []string,
) map[string]contracts.FundamentalsSnapshot {
	y, q := asofToQuarter(asofDate)
	cutoff := quarterIndex(y, q) - lagQuarters

	preferred := make(map[string]bool, len(preferredMetrics))
	for _, m := range preferredMetrics {
		preferred[m] = true
	}

	type symQuarter struct {
		symbol        string
		year, quarter int
	}

	bestQI := make(map[string]int)
	bySymQ := make(map[symQuarter]map[string]float64)

	for _, r := range records {
		qi := quarterIndex(r.Year, r.Quarter)
		if qi > cutoff {
			continue
		}
		key := symQuarter{symbol: r.Symbol, year: r.Year, quarter: r.Quarter}
		if bySymQ[key] == nil {
			bySymQ[key] = make(map[string]float64)
		}
		bySymQ[key][r.Metric] = r.Value

		if prev, ok := bestQI[r.Symbol]; !ok || qi > prev {
			bestQI[r.Symbol] = qi
		}
	}

	out := make(map[string]contracts.FundamentalsSnapshot, len(bestQI))
	for sym, qi := range bestQI {
		year := qi / 4
		quarter := (qi % 4) + 1
		metrics := bySymQ[symQuarter{symbol: sym, year: year, quarter: quarter}]

		if len(preferred) > 0 {
			filtered := make(map[string]float64, len(metrics))
			for k, v := range metrics {
				if preferred[k] {
					filtered[k] = v
				}
			}
			metrics = filtered
		}

		out[sym] = contracts.FundamentalsSnapshot{
			Symbol:  sym,
			Year:    year,
			Quarter: quarter,
			Metrics: metrics,
		}
	}
	return out
}
