package commands

import (
	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/internal/dataaccess"
	"github.com/vnquant/advisor/internal/engine"
	"github.com/vnquant/advisor/internal/overlay"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/logger"
)

// buildEngine wires the recommendation engine from config: local file
// providers, the demo portfolio source and the optional text overlay
func buildEngine(cfg *config.Config, log *logger.Logger) *engine.Engine {
	provider := dataaccess.NewLocalFileProvider(cfg.Data, log)

	var textOverlay contracts.TextOverlay = overlay.NewDisabled()
	if cfg.Overlay.Enabled {
		textOverlay = overlay.NewRemote(cfg.Overlay, log)
	}

	return engine.New(engine.Deps{
		History:      provider,
		News:         provider,
		Sentiment:    provider,
		Fundamentals: provider,
		Forecasts:    provider,
		Macro:        provider,
		Portfolios:   dataaccess.NewDemoPortfolioProvider(),
		Overlay:      textOverlay,
		Logger:       log,
	})
}
