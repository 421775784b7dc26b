package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/creedpetitt/ai-services-backend/internal/domain/tokenusage"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/metrics"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// TokenUsageRepository implements tokenusage.Repository using GORM.
type TokenUsageRepository struct {
	db *gorm.DB
}

var _ tokenusage.Repository = (*TokenUsageRepository)(nil)

// NewTokenUsageRepository creates a new TokenUsageRepository.
func NewTokenUsageRepository(db *gorm.DB) *TokenUsageRepository {
	return &TokenUsageRepository{db: db}
}

// Create stores a new token usage record.
func (r *TokenUsageRepository) Create(ctx context.Context, usage *tokenusage.TokenUsage) error {
	if err := r.db.WithContext(ctx).Create(usage).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to record token usage")
	}
	metrics.RecordTokens(usage.Model, usage.Provider, usage.PromptTokens, usage.CompletionTokens)
	return nil
}

// GetUserSummaries retrieves per-model aggregated usage for a user within a
// date range.
func (r *TokenUsageRepository) GetUserSummaries(ctx context.Context, userID uint, startDate, endDate time.Time) ([]tokenusage.UsageSummary, error) {
	var summaries []tokenusage.UsageSummary

	err := r.db.WithContext(ctx).
		Model(&tokenusage.TokenUsage{}).
		Select(`
			model,
			provider,
			SUM(prompt_tokens) as total_prompt_tokens,
			SUM(completion_tokens) as total_completion_tokens,
			SUM(total_tokens) as total_tokens,
			SUM(estimated_cost_usd) as estimated_cost_usd,
			COUNT(*) as request_count
		`).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, startDate, endDate).
		Group("model, provider").
		Order("total_tokens DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to aggregate token usage")
	}

	return summaries, nil
}
