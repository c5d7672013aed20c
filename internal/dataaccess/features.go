package dataaccess

import (
	"math"

	"github.com/vnquant/advisor/internal/contracts"
)

// Feature engineering over daily OHLCV bars.
// Windows mirror the dataset conventions: 5d momentum, 20d realized vol,
// ATR14, 20d average volume.

const (
	retWindow          = 5
	volWindow          = 20
	atrWindow          = 14
	volLiquidityWindow = 20
)

// ComputeSymbolFeatures computes per-symbol technical features.
// Bars must be sorted by date ascending (the loader guarantees this).
// Symbols with insufficient history are skipped, not errored.
func ComputeSymbolFeatures(historyBySymbol map[string][]contracts.OHLCVBar) map[string]contracts.SymbolFeatures {
	out := make(map[string]contracts.SymbolFeatures, len(historyBySymbol))

	minBars := retWindow + 1
	if volWindow+1 > minBars {
		minBars = volWindow + 1
	}
	if atrWindow+1 > minBars {
		minBars = atrWindow + 1
	}

	for sym, bars := range historyBySymbol {
		if len(bars) < minBars {
			continue
		}

		n := len(bars)

		// Daily simple returns; zero when the previous close is zero
		rets := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			prev := bars[i-1].Close
			if prev == 0 {
				rets = append(rets, -1.0) // matches ratio 0 - 1
				continue
			}
			rets = append(rets, bars[i].Close/prev-1.0)
		}

		// Momentum proxy
		c0 := bars[n-retWindow-1].Close
		c1 := bars[n-1].Close
		ret5d := 0.0
		if c0 > 0 {
			ret5d = c1/c0 - 1.0
		}

		// Realized vol: sample std of daily returns over the window
		volSlice := rets[len(rets)-volWindow:]
		realizedVol := sampleStd(volSlice)

		// ATR: mean true range over the window
		trs := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			hl := bars[i].High - bars[i].Low
			hc := math.Abs(bars[i].High - bars[i-1].Close)
			lc := math.Abs(bars[i].Low - bars[i-1].Close)
			trs = append(trs, math.Max(hl, math.Max(hc, lc)))
		}
		atrSlice := trs[len(trs)-atrWindow:]
		atr := mean(atrSlice)

		// Liquidity proxy: average volume
		volumes := make([]float64, 0, volLiquidityWindow)
		for i := n - volLiquidityWindow; i < n; i++ {
			volumes = append(volumes, bars[i].Volume)
		}
		avgVol := mean(volumes)

		out[sym] = contracts.SymbolFeatures{
			Symbol:         sym,
			LastClose:      bars[n-1].Close,
			Return5D:       ret5d,
			RealizedVol20D: realizedVol,
			ATR14:          atr,
			AvgVolume20D:   avgVol,
		}
	}
	return out
}

// SpreadProxy estimates microstructure cost when no orderbook exists:
// higher vol, lower liquidity -> higher proxy. +Inf when liquidity <= 0.
func SpreadProxy(avgVolume20D, realizedVol20D float64) float64 {
	vol := realizedVol20D
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		vol = 0
	}
	liq := avgVolume20D
	if math.IsNaN(liq) || math.IsInf(liq, 0) {
		liq = 0
	}
	if liq <= 0 {
		return math.Inf(1)
	}
	return vol / math.Sqrt(liq)
}

// UncertaintyBandFromVol builds a P10/P50/P90 band assuming normal-ish
// uncertainty scaling with sqrt(time). Non-finite or non-positive inputs
// collapse the band to the point estimate.
func UncertaintyBandFromVol(expectedReturn, realizedVol float64, horizonDays int) contracts.UncertaintyBand {
	if !isFinitePositive(realizedVol) || horizonDays <= 0 {
		return contracts.UncertaintyBand{P10: expectedReturn, P50: expectedReturn, P90: expectedReturn}
	}
	scale := realizedVol * math.Sqrt(float64(horizonDays))
	return contracts.UncertaintyBand{
		P10: expectedReturn - 1.2816*scale,
		P50: expectedReturn,
		P90: expectedReturn + 1.2816*scale,
	}
}

// UncertaintyBandFromSigma builds the band from an external model sigma,
// scaled by sqrt(max(1,horizon)). Falls back to a point estimate when the
// resulting scale is not finite or not positive.
func UncertaintyBandFromSigma(expectedReturn, sigma float64, horizonDays int) contracts.UncertaintyBand {
	h := float64(horizonDays)
	if h < 1 {
		h = 1
	}
	scale := sigma * math.Sqrt(h)
	if !isFinitePositive(scale) || horizonDays <= 0 {
		return contracts.UncertaintyBand{P10: expectedReturn, P50: expectedReturn, P90: expectedReturn}
	}
	return contracts.UncertaintyBand{
		P10: expectedReturn - 1.2816*scale,
		P50: expectedReturn,
		P90: expectedReturn + 1.2816*scale,
	}
}

func isFinitePositive(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the ddof=1 standard deviation; NaN for fewer than 2 points
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
