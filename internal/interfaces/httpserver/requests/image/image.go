package imagerequests

// GenerateImageRequest asks a provider to render an image from a text
// prompt. ConversationID zero files the result under the caller's default
// image conversation.
type GenerateImageRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	Model          string `json:"model"`
	ConversationID uint   `json:"conversation_id"`
}
