package tokenusage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Service provides token usage accounting.
type Service struct {
	repo Repository
}

// NewService creates a new token usage service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordUsage stores a usage record, deriving the total when the caller
// left it unset.
func (s *Service) RecordUsage(ctx context.Context, usage *TokenUsage) error {
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return s.repo.Create(ctx, usage)
}

// UsageResponse is the API shape for a user's usage over a period.
type UsageResponse struct {
	Period     Period         `json:"period"`
	TotalUsage UsageSummary   `json:"total_usage"`
	ByModel    []UsageSummary `json:"by_model"`
}

// Period is a date range for usage queries.
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// GetMyUsage retrieves a user's usage summary within a date range.
func (s *Service) GetMyUsage(ctx context.Context, userID uint, startDate, endDate time.Time) (*UsageResponse, error) {
	summaries, err := s.repo.GetUserSummaries(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	response := &UsageResponse{
		Period:  Period{StartDate: startDate, EndDate: endDate},
		ByModel: make([]UsageSummary, 0, len(summaries)),
	}

	total := UsageSummary{EstimatedCostUSD: decimal.Zero}
	for _, summary := range summaries {
		total.TotalPromptTokens += summary.TotalPromptTokens
		total.TotalCompletionTokens += summary.TotalCompletionTokens
		total.TotalTokens += summary.TotalTokens
		total.RequestCount += summary.RequestCount
		total.EstimatedCostUSD = total.EstimatedCostUSD.Add(summary.EstimatedCostUSD)
		response.ByModel = append(response.ByModel, summary)
	}
	response.TotalUsage = total

	return response, nil
}
