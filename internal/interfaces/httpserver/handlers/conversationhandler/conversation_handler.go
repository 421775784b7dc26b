// Package conversationhandler serves the conversation REST API. All routes
// require an authenticated identity; anonymous exchanges are never persisted
// and therefore never listed.
package conversationhandler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
	conversationresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// ConversationHandler handles conversation HTTP requests.
type ConversationHandler struct {
	conversations *conversation.Service
	logger        zerolog.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(conversations *conversation.Service, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// List returns the caller's conversations, most recently updated first.
func (h *ConversationHandler) List(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	conversations, err := h.conversations.ListConversations(c.Request.Context(), owner)
	if err != nil {
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, conversationresponses.NewConversationListResponse(conversations))
}

// Get returns one conversation with its messages in chronological order.
func (h *ConversationHandler) Get(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	id, ok := conversationIDParam(c)
	if !ok {
		return
	}

	conv, err := h.conversations.GetConversation(c.Request.Context(), id, owner)
	if err != nil {
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	messages, err := h.conversations.GetMessages(c.Request.Context(), conv)
	if err != nil {
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, conversationresponses.NewConversationDetailResponse(conv, messages))
}

// Delete removes a conversation and all its messages.
func (h *ConversationHandler) Delete(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	id, ok := conversationIDParam(c)
	if !ok {
		return
	}

	if err := h.conversations.DeleteConversation(c.Request.Context(), id, owner); err != nil {
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, conversationresponses.NewConversationDeletedResponse(id))
}

func conversationIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		platformerrors.WriteValidationError(c, "invalid conversation id")
		return 0, false
	}
	return uint(id), true
}
