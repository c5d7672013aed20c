package dataaccess

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vnquant/advisor/internal/contracts"
)

// Local CSV loaders for the VN30 dataset.
// Every loader is a pure file -> slice/map transformation; callers own the
// resulting snapshots and pass them into the engine per invocation.

var datetimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func parseDateTimeFlexible(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime format: %q", s)
}

// parseFloat returns NaN for blank fields and strips thousands separators
func parseFloat(s string) float64 {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

var metricNormRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normMetric normalizes fundamentals metric names: lower, non-alphanumeric
// runs to a single underscore. Vietnamese letters are kept as-is.
func normMetric(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = metricNormRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// readCSV opens a CSV file and returns header + row reader.
// A UTF-8 BOM on the first header cell is stripped.
func readCSV(path string) (*csv.Reader, []string, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	return r, header, func() { f.Close() }, nil
}

func indexHeader(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q (have %v)", col, header)
		}
	}
	return idx, nil
}

func field(record []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// LoadHistoryCSV loads per-symbol OHLCV bars.
// Expected header: time,open,high,low,close,volume,symbol
// Bars come back sorted by date ascending per symbol.
func LoadHistoryCSV(path string) (map[string][]contracts.OHLCVBar, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "time", "open", "high", "low", "close", "volume", "symbol")
	if err != nil {
		return nil, fmt.Errorf("history file: %w", err)
	}

	out := make(map[string][]contracts.OHLCVBar)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history row: %w", err)
		}

		sym := strings.ToUpper(strings.TrimSpace(field(record, idx, "symbol")))
		if sym == "" {
			continue
		}
		date, err := parseDate(field(record, idx, "time"))
		if err != nil {
			return nil, fmt.Errorf("history row for %s: %w", sym, err)
		}

		out[sym] = append(out[sym], contracts.OHLCVBar{
			Date:   date,
			Open:   parseFloat(field(record, idx, "open")),
			High:   parseFloat(field(record, idx, "high")),
			Low:    parseFloat(field(record, idx, "low")),
			Close:  parseFloat(field(record, idx, "close")),
			Volume: parseFloat(field(record, idx, "volume")),
		})
	}

	for sym := range out {
		bars := out[sym]
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		out[sym] = bars
	}
	return out, nil
}

// LoadNewsCSV loads raw news items.
// Expected header: symbol,date_time,title,sapo,content_url,source
func LoadNewsCSV(path string) ([]contracts.NewsItem, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open news file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "symbol", "date_time", "title", "sapo", "content_url", "source")
	if err != nil {
		return nil, fmt.Errorf("news file: %w", err)
	}

	var items []contracts.NewsItem
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read news row: %w", err)
		}

		sym := strings.ToUpper(strings.TrimSpace(field(record, idx, "symbol")))
		if sym == "" {
			continue
		}
		ts, err := parseDateTimeFlexible(field(record, idx, "date_time"))
		if err != nil {
			continue // malformed timestamp: skip the row, not the file
		}

		items = append(items, contracts.NewsItem{
			Symbol:      sym,
			PublishedAt: ts,
			Title:       strings.TrimSpace(field(record, idx, "title")),
			Sapo:        strings.TrimSpace(field(record, idx, "sapo")),
			URL:         strings.TrimSpace(field(record, idx, "content_url")),
			Source:      strings.TrimSpace(field(record, idx, "source")),
		})
	}
	return items, nil
}

// LoadSentimentCSV loads scored sentiment items.
// Expected header: symbol,date_time,sentiment_score,relevance,title,reasoning,source,url
func LoadSentimentCSV(path string) ([]contracts.SentimentItem, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sentiment file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "symbol", "date_time", "sentiment_score", "relevance")
	if err != nil {
		return nil, fmt.Errorf("sentiment file: %w", err)
	}

	var items []contracts.SentimentItem
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sentiment row: %w", err)
		}

		sym := strings.ToUpper(strings.TrimSpace(field(record, idx, "symbol")))
		if sym == "" {
			continue
		}
		ts, err := parseDateTimeFlexible(field(record, idx, "date_time"))
		if err != nil {
			continue
		}
		score := parseFloat(field(record, idx, "sentiment_score"))
		if math.IsNaN(score) {
			continue
		}

		items = append(items, contracts.SentimentItem{
			Symbol:         sym,
			PublishedAt:    ts,
			SentimentScore: score,
			Relevance:      parseFloat(field(record, idx, "relevance")),
			Title:          strings.TrimSpace(field(record, idx, "title")),
			Reasoning:      strings.TrimSpace(field(record, idx, "reasoning")),
			Source:         strings.TrimSpace(field(record, idx, "source")),
			URL:            strings.TrimSpace(field(record, idx, "url")),
		})
	}
	return items, nil
}

// LoadFundamentalsCSV loads long-form fundamentals records.
// Expected header: symbol,year,quarter,metric,value
func LoadFundamentalsCSV(path string) ([]contracts.FundamentalRecord, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fundamentals file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "symbol", "year", "quarter", "metric", "value")
	if err != nil {
		return nil, fmt.Errorf("fundamentals file: %w", err)
	}

	var records []contracts.FundamentalRecord
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read fundamentals row: %w", err)
		}

		sym := strings.ToUpper(strings.TrimSpace(field(record, idx, "symbol")))
		if sym == "" {
			continue
		}
		year, errY := strconv.Atoi(strings.TrimSpace(field(record, idx, "year")))
		quarter, errQ := strconv.Atoi(strings.TrimSpace(field(record, idx, "quarter")))
		if errY != nil || errQ != nil || quarter < 1 || quarter > 4 {
			continue
		}
		value := parseFloat(field(record, idx, "value"))
		if math.IsNaN(value) {
			continue
		}

		records = append(records, contracts.FundamentalRecord{
			Symbol:  sym,
			Year:    year,
			Quarter: quarter,
			Metric:  normMetric(field(record, idx, "metric")),
			Value:   value,
		})
	}
	return records, nil
}

// LoadMacroCSV loads quarterly macro points.
// Expected header: year,quarter,inf_pct,gdp_pct,dc_pct (percent values)
func LoadMacroCSV(path string) ([]contracts.MacroPoint, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open macro file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "year", "quarter")
	if err != nil {
		return nil, fmt.Errorf("macro file: %w", err)
	}

	optional := func(record []string, col string) *float64 {
		v := parseFloat(field(record, idx, col))
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}

	var points []contracts.MacroPoint
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read macro row: %w", err)
		}

		year, errY := strconv.Atoi(strings.TrimSpace(field(record, idx, "year")))
		quarter, errQ := strconv.Atoi(strings.TrimSpace(field(record, idx, "quarter")))
		if errY != nil || errQ != nil {
			continue
		}

		points = append(points, contracts.MacroPoint{
			Year:    year,
			Quarter: quarter,
			InfPct:  optional(record, "inf_pct"),
			GDPPct:  optional(record, "gdp_pct"),
			DCPct:   optional(record, "dc_pct"),
		})
	}
	return points, nil
}

// LoadUSDVNDCSV loads daily USD/VND closes.
// Expected header: date,value
func LoadUSDVNDCSV(path string) ([]contracts.FXPoint, error) {
	r, header, closeFn, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usdvnd file: %w", err)
	}
	defer closeFn()

	idx, err := indexHeader(header, "date", "value")
	if err != nil {
		return nil, fmt.Errorf("usdvnd file: %w", err)
	}

	var points []contracts.FXPoint
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read usdvnd row: %w", err)
		}

		date, err := parseDate(field(record, idx, "date"))
		if err != nil {
			continue
		}
		value := parseFloat(field(record, idx, "value"))
		if math.IsNaN(value) {
			continue
		}

		points = append(points, contracts.FXPoint{Date: date, Value: value})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}
