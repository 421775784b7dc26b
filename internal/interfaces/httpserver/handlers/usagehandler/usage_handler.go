// Package usagehandler reports quota balances and token usage for the
// calling identity.
package usagehandler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/quota"
	"github.com/creedpetitt/ai-services-backend/internal/domain/tokenusage"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// UsageHandler handles usage API requests.
type UsageHandler struct {
	ledger *quota.Ledger
	usage  *tokenusage.Service
	logger zerolog.Logger
}

// NewUsageHandler creates a usage handler. usage may be nil when token
// accounting is disabled.
func NewUsageHandler(ledger *quota.Ledger, usage *tokenusage.Service, logger zerolog.Logger) *UsageHandler {
	return &UsageHandler{ledger: ledger, usage: usage, logger: logger}
}

// QuotaStatus is the remaining budget for one quota kind.
type QuotaStatus struct {
	Remaining int `json:"remaining"`
}

// UsageStatusResponse combines quota balances with token usage. Tokens is
// omitted for anonymous callers and when accounting is disabled.
type UsageStatusResponse struct {
	Object string                    `json:"object"`
	Quota  map[string]QuotaStatus    `json:"quota"`
	Tokens *tokenusage.UsageResponse `json:"tokens,omitempty"`
}

// Get returns the caller's remaining quotas and, for authenticated callers,
// a token usage summary over the requested date range (default 30 days).
func (h *UsageHandler) Get(c *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "identity not resolved")
		return
	}

	ctx := c.Request.Context()
	response := UsageStatusResponse{
		Object: "usage",
		Quota: map[string]QuotaStatus{
			string(quota.KindMessage): {Remaining: h.ledger.Remaining(ctx, identity, quota.KindMessage)},
			string(quota.KindImage):   {Remaining: h.ledger.Remaining(ctx, identity, quota.KindImage)},
		},
	}

	if authed, isAuthed := identity.(domain.Authenticated); isAuthed && h.usage != nil {
		startDate, endDate := parseDateRange(c)
		tokens, err := h.usage.GetMyUsage(ctx, authed.User.ID, startDate, endDate)
		if err != nil {
			platformerrors.WriteError(c, err, h.logger)
			return
		}
		response.Tokens = tokens
	}

	c.JSON(http.StatusOK, response)
}

// parseDateRange extracts start and end dates from query parameters.
func parseDateRange(c *gin.Context) (time.Time, time.Time) {
	now := time.Now()
	endDate := now
	startDate := now.AddDate(0, 0, -30)

	if startStr := c.Query("start_date"); startStr != "" {
		if parsed, err := time.Parse("2006-01-02", startStr); err == nil {
			startDate = parsed
		}
	}

	if endStr := c.Query("end_date"); endStr != "" {
		if parsed, err := time.Parse("2006-01-02", endStr); err == nil {
			endDate = parsed.Add(24*time.Hour - time.Second)
		}
	}

	return startDate, endDate
}
