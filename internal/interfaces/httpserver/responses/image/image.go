package imageresponses

import (
	conversationresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/conversation"
)

// ImageResponse is the result of one image generation.
type ImageResponse struct {
	Object               string `json:"object"`
	URL                  string `json:"url"`
	RevisedPrompt        string `json:"revised_prompt,omitempty"`
	Model                string `json:"model"`
	ConversationID       uint   `json:"conversation_id,omitempty"`
	ConversationPublicID string `json:"conversation_public_id,omitempty"`
}

// ImageListResponse lists the caller's generated images, newest first.
type ImageListResponse struct {
	Object string                                  `json:"object"`
	Data   []conversationresponses.MessageResponse `json:"data"`
}
