// Package imagehandler serves image generation requests and the caller's
// generated image history.
package imagehandler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/domain/quota"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/inference"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/metrics"
	"github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/middlewares"
	imagerequests "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/requests/image"
	conversationresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/conversation"
	imageresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/image"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

const defaultImageConversationTitle = "Image Generation"

// ImageHandler handles image generation HTTP requests. generator may be nil
// when no provider supports image generation; requests then fail fast.
type ImageHandler struct {
	generator     inference.ImageGenerator
	ledger        *quota.Ledger
	conversations *conversation.Service
	logger        zerolog.Logger
}

// NewImageHandler creates an image handler.
func NewImageHandler(
	generator inference.ImageGenerator,
	ledger *quota.Ledger,
	conversations *conversation.Service,
	logger zerolog.Logger,
) *ImageHandler {
	return &ImageHandler{
		generator:     generator,
		ledger:        ledger,
		conversations: conversations,
		logger:        logger,
	}
}

// Generate renders an image from the prompt. Authenticated callers get the
// result filed into a conversation; anonymous callers only receive the URL.
func (h *ImageHandler) Generate(c *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "identity not resolved")
		return
	}

	if h.generator == nil {
		platformerrors.WriteError(c, platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler,
			platformerrors.ErrorTypeExternal, "image generation is not configured", nil), h.logger)
		return
	}

	var req imagerequests.GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "invalid image request: "+err.Error())
		return
	}

	ctx := c.Request.Context()

	if !h.ledger.Allowed(ctx, identity, quota.KindImage) {
		metrics.RecordQuotaRejection("image", domain.Class(identity))
		platformerrors.WriteRateLimited(c, "image limit reached")
		return
	}

	generated, err := h.generator.Generate(ctx, req.Prompt, req.Model)
	if err != nil {
		metrics.RecordImageGenerated(req.Model, "error")
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	h.ledger.Increment(ctx, identity, quota.KindImage)
	metrics.RecordImageGenerated(generated.Model, "success")

	response := imageresponses.ImageResponse{
		Object:        "image",
		URL:           generated.URL,
		RevisedPrompt: generated.RevisedPrompt,
		Model:         generated.Model,
	}

	if authed, ok := identity.(domain.Authenticated); ok {
		conv, err := h.fileImage(ctx, authed.User, req, generated)
		if err != nil {
			// The caller already holds the image URL; persistence failure
			// only loses history.
			h.logger.Warn().Err(err).Uint("user_id", authed.User.ID).Msg("failed to file generated image")
		} else if conv != nil {
			response.ConversationID = conv.ID
			response.ConversationPublicID = conv.PublicID
		}
	}

	c.JSON(http.StatusOK, response)
}

// ListMine returns the caller's generated images across conversations,
// newest first.
func (h *ImageHandler) ListMine(c *gin.Context) {
	owner, ok := middlewares.UserFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "authentication required")
		return
	}

	messages, err := h.conversations.ListImageMessages(c.Request.Context(), owner)
	if err != nil {
		platformerrors.WriteError(c, err, h.logger)
		return
	}

	data := make([]conversationresponses.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		data = append(data, conversationresponses.NewMessageResponse(msg))
	}

	c.JSON(http.StatusOK, imageresponses.ImageListResponse{Object: "list", Data: data})
}

// fileImage records the generated image as an image message, resolving the
// target conversation from the request or the user's default image
// conversation.
func (h *ImageHandler) fileImage(
	ctx context.Context,
	owner *user.User,
	req imagerequests.GenerateImageRequest,
	generated *inference.GeneratedImage,
) (*conversation.Conversation, error) {
	conv, err := h.resolveConversation(ctx, owner, req.ConversationID, generated.Model)
	if err != nil {
		return nil, err
	}

	if _, err := h.conversations.AddImageMessage(ctx, conv, owner, req.Prompt, generated.URL, generated.Model); err != nil {
		return nil, err
	}
	if err := h.conversations.Touch(ctx, conv); err != nil {
		h.logger.Warn().Err(err).Uint("conversation_id", conv.ID).Msg("failed to touch conversation")
	}
	return conv, nil
}

func (h *ImageHandler) resolveConversation(ctx context.Context, owner *user.User, id uint, modelName string) (*conversation.Conversation, error) {
	if id != 0 {
		return h.conversations.GetConversation(ctx, id, owner)
	}

	existing, err := h.conversations.ListConversations(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, conv := range existing {
		if conv.Title == defaultImageConversationTitle {
			return conv, nil
		}
	}

	return h.conversations.CreateConversation(ctx, owner, defaultImageConversationTitle, modelName)
}
