package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/httputil"
	"github.com/vnquant/advisor/pkg/logger"
)

// Remote calls an external text-rendering service with the full facts
// payload and gets back textual fields only. The engine treats any error
// here as soft: it falls back to the deterministic template.
type Remote struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewRemote builds the overlay client from config: bounded retries and a
// rate limit so a slow renderer cannot stall the pipeline.
func NewRemote(cfg config.OverlayConfig, log *logger.Logger) *Remote {
	client := httputil.New(log, cfg.Timeout).
		WithRetry(cfg.MaxRetries, 500*time.Millisecond).
		WithRateLimit(cfg.RatePerSec, 1)
	return &Remote{
		client:  client,
		baseURL: cfg.BaseURL,
		logger:  log,
	}
}

func (r *Remote) Enabled() bool {
	return true
}

// RenderTextFields posts the facts payload to the render endpoint.
// The response carries notes plus per-symbol entry_rule/invalidation;
// nothing numeric crosses back over this boundary.
func (r *Remote) RenderTextFields(ctx context.Context, facts *contracts.FactsPayload) (*contracts.OverlayText, error) {
	url := r.baseURL + "/v1/render"

	resp, err := r.client.PostJSON(ctx, url, facts)
	if err != nil {
		return nil, fmt.Errorf("overlay render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overlay render returned status %d", resp.StatusCode)
	}

	var text contracts.OverlayText
	if err := json.NewDecoder(resp.Body).Decode(&text); err != nil {
		return nil, fmt.Errorf("overlay render response decode failed: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"symbols": len(text.PerSymbol),
	}).Debug("Overlay text rendered")

	return &text, nil
}

var _ contracts.TextOverlay = (*Remote)(nil)
