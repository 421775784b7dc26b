// Package chathandler exposes the chat turn pipeline over HTTP, streaming
// by default via Server Sent Events.
package chathandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/chat"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/metrics"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
	chatrequests "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/requests/chat"
	chatresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/chat"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// ChatHandler handles chat turn requests.
type ChatHandler struct {
	controller *chat.Controller
	logger     zerolog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(controller *chat.Controller, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{controller: controller, logger: logger}
}

// Turn runs one chat turn. With stream enabled (the default) the reply
// arrives as SSE events; otherwise the whole reply is returned as JSON.
func (h *ChatHandler) Turn(c *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "identity not resolved")
		return
	}

	var req chatrequests.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid chat request: "+err.Error())
		return
	}

	turn := chat.TurnRequest{
		ConversationID: req.ConversationID,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
		Model:          req.Model,
	}

	if !req.WantsStream() {
		h.completeTurn(c, identity, turn)
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		platformerrors.WriteInternalError(c, "streaming is not supported by this connection")
		return
	}

	sink := newSSESink(c, flusher)
	metrics.IncrementActiveStreams(turn.Model)
	defer metrics.DecrementActiveStreams(turn.Model)

	if err := h.controller.StreamTurn(c.Request.Context(), identity, turn, sink); err != nil {
		// Nothing has been written yet; a plain JSON error is still possible.
		if platformErr := platformerrors.GetPlatformError(err); platformErr != nil && platformErr.Type == platformerrors.ErrorTypeRateLimited {
			metrics.RecordQuotaRejection("message", domain.Class(identity))
		}
		platformerrors.WriteError(c, err, h.logger)
		return
	}
}

func (h *ChatHandler) completeTurn(c *gin.Context, identity domain.Identity, turn chat.TurnRequest) {
	result, err := h.controller.CompleteTurn(c.Request.Context(), identity, turn)
	if err != nil {
		if platformErr := platformerrors.GetPlatformError(err); platformErr != nil && platformErr.Type == platformerrors.ErrorTypeRateLimited {
			metrics.RecordQuotaRejection("message", domain.Class(identity))
		}
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	response := chatresponses.TurnResponse{
		Object:  "chat.turn",
		Content: result.Content,
		Model:   result.Model,
	}
	if result.Conversation != nil {
		response.ConversationID = result.Conversation.ID
		response.ConversationPublicID = result.Conversation.PublicID
	}

	c.JSON(http.StatusOK, response)
}
