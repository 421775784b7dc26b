package conversationresponses

import (
	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
)

// ConversationResponse is the API shape of a conversation without its
// messages.
type ConversationResponse struct {
	ID        uint   `json:"id"`
	PublicID  string `json:"public_id"`
	Object    string `json:"object"`
	Title     string `json:"title"`
	Model     string `json:"model"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// MessageResponse is the API shape of a single message.
type MessageResponse struct {
	ID        uint    `json:"id"`
	PublicID  string  `json:"public_id"`
	Object    string  `json:"object"`
	Kind      string  `json:"kind"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url,omitempty"`
	Model     *string `json:"model,omitempty"`
	CreatedAt int64   `json:"created_at"`
}

// ConversationDetailResponse carries a conversation together with its
// messages in chronological order.
type ConversationDetailResponse struct {
	ConversationResponse
	Messages []MessageResponse `json:"messages"`
}

// ConversationListResponse is the list envelope for conversations.
type ConversationListResponse struct {
	Object string                 `json:"object"`
	Data   []ConversationResponse `json:"data"`
}

// ConversationDeletedResponse confirms a deletion.
type ConversationDeletedResponse struct {
	ID      uint   `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// NewConversationResponse maps a domain conversation.
func NewConversationResponse(conv *conversation.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        conv.ID,
		PublicID:  conv.PublicID,
		Object:    "conversation",
		Title:     conv.Title,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt.Unix(),
		UpdatedAt: conv.UpdatedAt.Unix(),
	}
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *conversation.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		PublicID:  msg.PublicID,
		Object:    "message",
		Kind:      string(msg.Kind),
		Content:   msg.Content,
		ImageURL:  msg.ImageURL,
		Model:     msg.Model,
		CreatedAt: msg.CreatedAt.Unix(),
	}
}

// NewConversationDetailResponse maps a conversation and its messages.
func NewConversationDetailResponse(conv *conversation.Conversation, messages []*conversation.Message) ConversationDetailResponse {
	data := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		data = append(data, NewMessageResponse(msg))
	}
	return ConversationDetailResponse{
		ConversationResponse: NewConversationResponse(conv),
		Messages:             data,
	}
}

// NewConversationListResponse maps a slice of conversations.
func NewConversationListResponse(conversations []*conversation.Conversation) ConversationListResponse {
	data := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		if conv == nil {
			continue
		}
		data = append(data, NewConversationResponse(conv))
	}
	return ConversationListResponse{Object: "list", Data: data}
}

// NewConversationDeletedResponse confirms deletion of the given conversation.
func NewConversationDeletedResponse(id uint) ConversationDeletedResponse {
	return ConversationDeletedResponse{
		ID:      id,
		Object:  "conversation.deleted",
		Deleted: true,
	}
}
