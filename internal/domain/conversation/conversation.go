// Package conversation provides the conversation and message domain models.
package conversation

import (
	"context"
	"time"
)

// Conversation is an ordered container of messages owned by a single user.
// Messages are immutable once appended; only Title, Model and UpdatedAt
// change after creation.
type Conversation struct {
	ID        uint
	PublicID  string
	UserID    uint
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []*Message
}

// MessageKind discriminates what a message carries.
type MessageKind string

const (
	MessageKindUser      MessageKind = "user"
	MessageKindAssistant MessageKind = "assistant"
	MessageKindImage     MessageKind = "image"
)

// Message is one immutable entry in a conversation. ImageURL is set for
// image-bearing messages, Model for assistant and image messages.
type Message struct {
	ID             uint
	PublicID       string
	ConversationID uint
	UserID         uint
	Kind           MessageKind
	Content        string
	ImageURL       *string
	Model          *string
	CreatedAt      time.Time
}

// Repository defines storage operations for conversations and their messages.
// FindMessages returns messages ordered by creation time ascending.
type Repository interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByID(ctx context.Context, id uint) (*Conversation, error)
	FindByUserID(ctx context.Context, userID uint) ([]*Conversation, error)
	Update(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id uint) error

	AddMessage(ctx context.Context, msg *Message) error
	FindMessages(ctx context.Context, conversationID uint) ([]*Message, error)
	FindImageMessagesByUserID(ctx context.Context, userID uint) ([]*Message, error)
}
