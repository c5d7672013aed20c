package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/vnquant/advisor/internal/audit"
	"github.com/vnquant/advisor/internal/contracts"
	"github.com/vnquant/advisor/internal/engine"
	"github.com/vnquant/advisor/pkg/logger"
)

// Recommender runs the recommendation pipeline
type Recommender interface {
	Recommend(ctx context.Context, req engine.Request) (*contracts.RecommendationOutput, error)
}

// RecommendationStore persists generated recommendations
type RecommendationStore interface {
	SaveRecommendation(ctx context.Context, userID string, asof time.Time, output *contracts.RecommendationOutput) error
}

// RecommendationJob generates and stores the daily plan for a fixed set of
// users after the market close
type RecommendationJob struct {
	engine   Recommender
	store    RecommendationStore
	userIDs  []string
	requests engine.Request
	logger   *logger.Logger
}

// NewRecommendationJob creates the daily recommendation job.
// store may be nil when no database is configured; the run still logs.
func NewRecommendationJob(eng Recommender, store RecommendationStore, userIDs []string, template engine.Request, log *logger.Logger) *RecommendationJob {
	return &RecommendationJob{
		engine:   eng,
		store:    store,
		userIDs:  userIDs,
		requests: template,
		logger:   log,
	}
}

// Name returns the job name
func (j *RecommendationJob) Name() string {
	return "daily_recommendation"
}

// Schedule runs weekdays at 16:00, after HOSE settles the closing session
func (j *RecommendationJob) Schedule() string {
	return "0 0 16 * * 1-5"
}

// Run generates one recommendation per configured user. A failing user
// does not stop the rest; the job fails if every user failed.
func (j *RecommendationJob) Run(ctx context.Context) error {
	var failures int
	for _, userID := range j.userIDs {
		req := j.requests
		req.UserID = userID

		out, err := j.engine.Recommend(ctx, req)
		if err != nil {
			failures++
			j.logger.WithError(err).WithField("user_id", userID).Error("Recommendation run failed")
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"user_id":     userID,
			"actions":     len(out.RecommendedActions),
			"cash_weight": out.CashWeight,
		}).Info("Recommendation generated")

		if j.store != nil {
			if err := j.store.SaveRecommendation(ctx, userID, time.Now().UTC(), out); err != nil {
				j.logger.WithError(err).WithField("user_id", userID).Error("Failed to persist recommendation")
			}
		}
	}

	if len(j.userIDs) > 0 && failures == len(j.userIDs) {
		return fmt.Errorf("all %d recommendation runs failed", failures)
	}
	return nil
}

var _ RecommendationStore = (*audit.Repository)(nil)
