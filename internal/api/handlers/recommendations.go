package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vnquant/advisor/internal/audit"
	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/internal/engine"
	"github.com/vnquant/advisor/pkg/logger"
	"github.com/vnquant/advisor/pkg/redis"
)

// Recommender runs the recommendation pipeline
type Recommender interface {
	Recommend(ctx context.Context, req engine.Request) (*contracts.RecommendationOutput, error)
}

// HistoryStore reads persisted recommendation runs
type HistoryStore interface {
	GetHistory(ctx context.Context, userID string, start, end time.Time) ([]audit.Record, error)
}

// cacheTTL bounds staleness for repeated identical queries; the pipeline
// is deterministic over its input files, so short is enough
const cacheTTL = 5 * time.Minute

// RecommendationHandler handles recommendation API endpoints
// SSOT: recommendation HTTP parameter parsing happens only here
type RecommendationHandler struct {
	engine Recommender
	store  HistoryStore
	cache  *redis.Cache
	logger *logger.Logger
}

// NewRecommendationHandler creates a new recommendation handler.
// store may be nil when no database is configured.
func NewRecommendationHandler(eng Recommender, store HistoryStore, cache *redis.Cache, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		engine: eng,
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// GetRecommendations runs the pipeline for the query parameters
// GET /api/recommendations?user_id=demo&horizon_days=7&top_n=3
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseRecommendationQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("rec:%s:%d:%d:%d:%s:%s",
		req.UserID, req.HorizonDays, req.TopN, req.FundLagQuarters, req.ForecastSource, req.RiskOverride)

	var cached contracts.RecommendationOutput
	if hit, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		respondJSON(w, http.StatusOK, &cached)
		return
	}

	out, err := h.engine.Recommend(ctx, req)
	if err != nil {
		if errors.Is(err, engine.ErrNoHistory) {
			h.logger.WithError(err).Error("Recommendation failed: no history")
			respondError(w, http.StatusServiceUnavailable, "No price history available")
			return
		}
		h.logger.WithError(err).Error("Recommendation failed")
		respondError(w, http.StatusInternalServerError, "Failed to generate recommendation")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, out, cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache recommendation")
	}

	respondJSON(w, http.StatusOK, out)
}

// GetHistory returns persisted runs for a user
// GET /api/recommendations/history?user_id=demo&from=2025-01-01&to=2025-12-31
func (h *RecommendationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Recommendation history is not configured")
		return
	}

	userID := queryDefault(r, "user_id", "demo")

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
			return
		}
	}

	records, err := h.store.GetHistory(r.Context(), userID, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recommendation history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

func parseRecommendationQuery(r *http.Request) (engine.Request, error) {
	req := engine.Request{
		UserID:         queryDefault(r, "user_id", "demo"),
		HorizonDays:    7,
		TopN:           3,
		ForecastSource: queryDefault(r, "forecast_source", "stub"),
		RiskOverride:   contracts.RiskProfile(r.URL.Query().Get("risk_profile")),
	}

	var err error
	if req.HorizonDays, err = queryInt(r, "horizon_days", 7); err != nil {
		return req, err
	}
	if req.HorizonDays < 1 || req.HorizonDays > 365 {
		return req, fmt.Errorf("horizon_days must be in [1,365], got %d", req.HorizonDays)
	}
	if req.TopN, err = queryInt(r, "top_n", 3); err != nil {
		return req, err
	}
	if req.FundLagQuarters, err = queryInt(r, "fund_lag_quarters", 0); err != nil {
		return req, err
	}

	switch req.RiskOverride {
	case "", contracts.RiskConservative, contracts.RiskModerate, contracts.RiskAggressive:
	default:
		return req, fmt.Errorf("invalid risk_profile %q", req.RiskOverride)
	}
	if req.ForecastSource != "stub" && req.ForecastSource != "artifacts" {
		return req, fmt.Errorf("invalid forecast_source %q", req.ForecastSource)
	}

	return req, nil
}

func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
