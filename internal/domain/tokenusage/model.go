package tokenusage

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TokenUsage is one recorded chat turn: estimated token counts and cost for
// a single completed model call.
type TokenUsage struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	UserID           uint            `gorm:"column:user_id;not null;index"`
	ConversationID   *uint           `gorm:"column:conversation_id;index"`
	Model            string          `gorm:"column:model;not null;index"`
	Provider         string          `gorm:"column:provider;not null;index"`
	PromptTokens     int             `gorm:"column:prompt_tokens;not null;default:0"`
	CompletionTokens int             `gorm:"column:completion_tokens;not null;default:0"`
	TotalTokens      int             `gorm:"column:total_tokens;not null;default:0"`
	EstimatedCostUSD decimal.Decimal `gorm:"column:estimated_cost_usd;type:decimal(10,6)"`
	RequestID        *string         `gorm:"column:request_id"`
	Stream           bool            `gorm:"column:stream;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for TokenUsage.
func (TokenUsage) TableName() string {
	return "ai_services.token_usage"
}

// UsageSummary is aggregated usage for one model.
type UsageSummary struct {
	Model                 string          `json:"model"`
	Provider              string          `json:"provider"`
	TotalPromptTokens     int64           `json:"total_prompt_tokens"`
	TotalCompletionTokens int64           `json:"total_completion_tokens"`
	TotalTokens           int64           `json:"total_tokens"`
	RequestCount          int64           `json:"request_count"`
	EstimatedCostUSD      decimal.Decimal `json:"estimated_cost_usd"`
}

// EstimateTokens approximates the token count of text. Streaming responses
// carry no usage block, so accounting runs on the common four characters per
// token heuristic.
func EstimateTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	tokens := runes / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

var tokensPerPrice = decimal.NewFromInt(1_000_000)

// CostFor computes the estimated USD cost given per-million-token prices.
func CostFor(promptTokens, completionTokens int, promptPrice, completionPrice decimal.Decimal) decimal.Decimal {
	promptCost := promptPrice.Mul(decimal.NewFromInt(int64(promptTokens))).Div(tokensPerPrice)
	completionCost := completionPrice.Mul(decimal.NewFromInt(int64(completionTokens))).Div(tokensPerPrice)
	return promptCost.Add(completionCost)
}
