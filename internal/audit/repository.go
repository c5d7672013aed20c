package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vnquant/advisor/internal/contracts"
)

// Repository persists generated recommendations for audit and replay.
// SSOT: recommendation history storage lives here and nowhere else
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record is one persisted recommendation run
type Record struct {
	UserID      string                         `json:"user_id"`
	AsOf        time.Time                      `json:"asof"`
	HorizonDays int                            `json:"horizon_days"`
	CashWeight  float64                        `json:"cash_weight"`
	Output      contracts.RecommendationOutput `json:"output"`
	CreatedAt   time.Time                      `json:"created_at"`
}

// SaveRecommendation upserts one run keyed by (user_id, asof, horizon_days).
// Re-running the same as-of replaces the stored output, which is safe
// because the pipeline is deterministic.
func (r *Repository) SaveRecommendation(ctx context.Context, userID string, asof time.Time, output *contracts.RecommendationOutput) error {
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		INSERT INTO advisor.recommendations (
			user_id, asof, horizon_days, cash_weight, output
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, asof, horizon_days) DO UPDATE SET
			cash_weight = EXCLUDED.cash_weight,
			output = EXCLUDED.output,
			created_at = now()
	`

	_, err = r.pool.Exec(ctx, query,
		userID, asof, output.HorizonDays, output.CashWeight, outputJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent stored run for a user
func (r *Repository) GetLatest(ctx context.Context, userID string) (*Record, error) {
	query := `
		SELECT user_id, asof, horizon_days, cash_weight, output, created_at
		FROM advisor.recommendations
		WHERE user_id = $1
		ORDER BY asof DESC, created_at DESC
		LIMIT 1
	`

	rec, err := r.scanRecord(r.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no recommendation found for user %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest recommendation: %w", err)
	}

	return rec, nil
}

// GetHistory retrieves stored runs for a user within an as-of range
func (r *Repository) GetHistory(ctx context.Context, userID string, start, end time.Time) ([]Record, error) {
	query := `
		SELECT user_id, asof, horizon_days, cash_weight, output, created_at
		FROM advisor.recommendations
		WHERE user_id = $1 AND asof BETWEEN $2 AND $3
		ORDER BY asof ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var outputJSON []byte

	err := row.Scan(
		&rec.UserID, &rec.AsOf, &rec.HorizonDays, &rec.CashWeight,
		&outputJSON, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(outputJSON, &rec.Output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}

	return &rec, nil
}
