package dbschema

import (
	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
	database.RegisterSchemaForAutoMigrate(Message{})
}

// Conversation represents the database schema for conversations.
type Conversation struct {
	BaseModel
	PublicID string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Title    string    `gorm:"type:varchar(256);not null"`
	Model    string    `gorm:"type:varchar(100);not null"`
	UserID   uint      `gorm:"index:idx_conversations_user_updated;not null"`
	User     User      `gorm:"foreignKey:UserID"`
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// Message represents the database schema for conversation messages.
type Message struct {
	BaseModel
	PublicID       string       `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID uint         `gorm:"index:idx_messages_conversation_created;not null"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID"`
	UserID         uint         `gorm:"index;not null"`
	Kind           string       `gorm:"type:varchar(20);not null"`
	Content        string       `gorm:"type:text;not null"`
	ImageURL       *string      `gorm:"type:varchar(512)"`
	Model          *string      `gorm:"type:varchar(100)"`
}

// NewSchemaConversation creates a database schema from a domain conversation.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	if c == nil {
		return nil
	}
	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID: c.PublicID,
		Title:    c.Title,
		Model:    c.Model,
		UserID:   c.UserID,
	}
}

// EtoD converts the schema conversation to the domain representation,
// including any preloaded messages.
func (c *Conversation) EtoD() *conversation.Conversation {
	if c == nil {
		return nil
	}
	conv := &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Title:     c.Title,
		Model:     c.Model,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for i := range c.Messages {
		conv.Messages = append(conv.Messages, c.Messages[i].EtoD())
	}
	return conv
}

// NewSchemaMessage creates a database schema from a domain message.
func NewSchemaMessage(m *conversation.Message) *Message {
	if m == nil {
		return nil
	}
	return &Message{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Kind:           string(m.Kind),
		Content:        m.Content,
		ImageURL:       m.ImageURL,
		Model:          m.Model,
	}
}

// EtoD converts the schema message to the domain representation.
func (m *Message) EtoD() *conversation.Message {
	if m == nil {
		return nil
	}
	return &conversation.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Kind:           conversation.MessageKind(m.Kind),
		Content:        m.Content,
		ImageURL:       m.ImageURL,
		Model:          m.Model,
		CreatedAt:      m.CreatedAt,
	}
}
