package dataaccess

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vnquant/advisor/internal/contracts"
)

// Forecast bundle built from locally saved validation artifacts.
// This is not live inference; it is a deterministic bridge between
// pretrained results and the engine without a model server.
//
// Source format: date,symbol,y_true,y_pred
//   expected_return   = last y_pred with date <= asof
//   uncertainty_sigma = rolling RMSE of (y_true - y_pred) per symbol
//   model_quality     = 1 / (1 + (rmse/0.02)^2), clamped to [0,1]

const defaultRMSEWindow = 60

// fallback sigma when fewer than 2 errors exist for the RMSE window
const fallbackSigma = 0.03

type forecastRow struct {
	date  time.Time
	yTrue float64
	yPred float64
}

func qualityFromRMSE(rmse float64) float64 {
	if math.IsNaN(rmse) || math.IsInf(rmse, 0) || rmse < 0 {
		return 0.0
	}
	q := 1.0 / (1.0 + (rmse/0.02)*(rmse/0.02))
	return math.Max(0.0, math.Min(1.0, q))
}

// LoadForecastBundleCSV loads per-symbol forecast points as of asofDate.
func LoadForecastBundleCSV(path string, asofDate time.Time, horizonDays int) (map[string]contracts.ForecastPoint, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open forecast file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "date", "symbol", "y_true", "y_pred")
	if err != nil {
		return nil, fmt.Errorf("forecast file: %w", err)
	}

	rowsBySym := make(map[string][]forecastRow)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read forecast row: %w", err)
		}

		sym := strings.ToUpper(strings.TrimSpace(field(record, idx, "symbol")))
		if sym == "" {
			continue
		}
		date, err := parseDate(field(record, idx, "date"))
		if err != nil {
			continue
		}
		yTrue := parseFloat(field(record, idx, "y_true"))
		yPred := parseFloat(field(record, idx, "y_pred"))
		if math.IsNaN(yTrue) || math.IsNaN(yPred) ||
			math.IsInf(yTrue, 0) || math.IsInf(yPred, 0) {
			continue
		}

		rowsBySym[sym] = append(rowsBySym[sym], forecastRow{date: date, yTrue: yTrue, yPred: yPred})
	}

	out := make(map[string]contracts.ForecastPoint, len(rowsBySym))
	for sym, rows := range rowsBySym {
		sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

		// last row with date <= asof
		last := -1
		for i := len(rows) - 1; i >= 0; i-- {
			if !rows[i].date.After(asofDate) {
				last = i
				break
			}
		}
		if last < 0 {
			continue
		}

		start := last - defaultRMSEWindow + 1
		if start < 0 {
			start = 0
		}
		var sumSq float64
		n := 0
		for i := start; i <= last; i++ {
			e := rows[i].yTrue - rows[i].yPred
			sumSq += e * e
			n++
		}

		sigma := fallbackSigma
		if n >= 2 {
			sigma = math.Sqrt(sumSq / float64(n))
		}

		out[sym] = contracts.ForecastPoint{
			Symbol:           sym,
			AsOfDate:         rows[last].date,
			HorizonDays:      horizonDays,
			ExpectedReturn:   rows[last].yPred,
			UncertaintySigma: sigma,
			ModelQuality:     qualityFromRMSE(sigma),
			Source:           fmt.Sprintf("val_predictions_csv(rmse_window=%d)", defaultRMSEWindow),
		}
	}
	return out, nil
}
