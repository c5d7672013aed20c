package dataaccess

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/logger"
)

// LocalFileProvider serves every evidence interface from local files.
// It is an explicit injected object owned by the caller; there are no
// module-level read-through caches anywhere in this package.
type LocalFileProvider struct {
	paths  config.DataConfig
	logger *logger.Logger
}

// NewLocalFileProvider creates a provider over the configured dataset paths
func NewLocalFileProvider(paths config.DataConfig, log *logger.Logger) *LocalFileProvider {
	return &LocalFileProvider{paths: paths, logger: log}
}

// LoadHistory loads the OHLCV history keyed by symbol
func (p *LocalFileProvider) LoadHistory(ctx context.Context) (map[string][]contracts.OHLCVBar, error) {
	history, err := LoadHistoryCSV(p.paths.HistoryCSV)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"path":    p.paths.HistoryCSV,
		"symbols": len(history),
	}).Debug("History loaded")

	return history, nil
}

// LoadNews loads raw news items. A missing file is a soft gap: empty slice.
func (p *LocalFileProvider) LoadNews(ctx context.Context) ([]contracts.NewsItem, error) {
	if !p.exists(p.paths.NewsCSV) {
		return nil, nil
	}
	items, err := LoadNewsCSV(p.paths.NewsCSV)
	if err != nil {
		return nil, fmt.Errorf("load news: %w", err)
	}
	return items, nil
}

// LoadSentiment loads scored sentiment items; missing file means none
func (p *LocalFileProvider) LoadSentiment(ctx context.Context) ([]contracts.SentimentItem, error) {
	if !p.exists(p.paths.SentimentCSV) {
		return nil, nil
	}
	items, err := LoadSentimentCSV(p.paths.SentimentCSV)
	if err != nil {
		return nil, fmt.Errorf("load sentiment: %w", err)
	}
	return items, nil
}

// LoadFundamentals loads long-form fundamentals; missing file means none
func (p *LocalFileProvider) LoadFundamentals(ctx context.Context) ([]contracts.FundamentalRecord, error) {
	if !p.exists(p.paths.FundamentalsCSV) {
		return nil, nil
	}
	records, err := LoadFundamentalsCSV(p.paths.FundamentalsCSV)
	if err != nil {
		return nil, fmt.Errorf("load fundamentals: %w", err)
	}
	return records, nil
}

// LoadForecasts loads the forecast bundle; missing file means stub mode
func (p *LocalFileProvider) LoadForecasts(ctx context.Context, asof time.Time, horizonDays int) (map[string]contracts.ForecastPoint, error) {
	if !p.exists(p.paths.ForecastCSV) {
		return nil, nil
	}
	bundle, err := LoadForecastBundleCSV(p.paths.ForecastCSV, asof, horizonDays)
	if err != nil {
		return nil, fmt.Errorf("load forecasts: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"path":    p.paths.ForecastCSV,
		"symbols": len(bundle),
	}).Debug("Forecast bundle loaded")

	return bundle, nil
}

// LoadMacro loads quarterly macro points; missing file means none
func (p *LocalFileProvider) LoadMacro(ctx context.Context) ([]contracts.MacroPoint, error) {
	if !p.exists(p.paths.MacroCSV) {
		return nil, nil
	}
	points, err := LoadMacroCSV(p.paths.MacroCSV)
	if err != nil {
		return nil, fmt.Errorf("load macro: %w", err)
	}
	return points, nil
}

// LoadUSDVND loads daily USD/VND closes; missing file means none
func (p *LocalFileProvider) LoadUSDVND(ctx context.Context) ([]contracts.FXPoint, error) {
	if !p.exists(p.paths.USDVNDCSV) {
		return nil, nil
	}
	points, err := LoadUSDVNDCSV(p.paths.USDVNDCSV)
	if err != nil {
		return nil, fmt.Errorf("load usdvnd: %w", err)
	}
	return points, nil
}

func (p *LocalFileProvider) exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Interface guards
var (
	_ contracts.HistoryProvider      = (*LocalFileProvider)(nil)
	_ contracts.NewsProvider         = (*LocalFileProvider)(nil)
	_ contracts.SentimentProvider    = (*LocalFileProvider)(nil)
	_ contracts.FundamentalsProvider = (*LocalFileProvider)(nil)
	_ contracts.ForecastProvider     = (*LocalFileProvider)(nil)
	_ contracts.MacroProvider        = (*LocalFileProvider)(nil)
)
