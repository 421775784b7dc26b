package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/utils/idgen"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

const (
	conversationIDPrefix = "conv"
	messageIDPrefix      = "msg"
	publicIDLength       = 16
)

// Service handles business logic for conversations and their messages.
type Service struct {
	repo Repository
}

// NewService creates a conversation service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateConversation persists a new conversation for the user. Title falls
// back to a default when blank; model is required.
func (s *Service) CreateConversation(ctx context.Context, owner *user.User, title, modelName string) (*Conversation, error) {
	if owner == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation owner is required", nil)
	}
	if strings.TrimSpace(modelName) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation model is required", nil)
	}
	if strings.TrimSpace(title) == "" {
		title = "New Conversation"
	}

	publicID, err := idgen.GenerateSecureID(conversationIDPrefix, publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate conversation id", err)
	}

	conv := &Conversation{
		PublicID: publicID,
		UserID:   owner.ID,
		Title:    title,
		Model:    modelName,
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}

	return conv, nil
}

// GetConversation retrieves a conversation by numeric ID and verifies
// ownership. A conversation owned by another user is reported as not found,
// never as forbidden.
func (s *Service) GetConversation(ctx context.Context, id uint, owner *user.User) (*Conversation, error) {
	if owner == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil)
	}

	conv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}

	if conv.UserID != owner.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil)
	}

	return conv, nil
}

// ListConversations returns the user's conversations, most recently updated
// first.
func (s *Service) ListConversations(ctx context.Context, owner *user.User) ([]*Conversation, error) {
	conversations, err := s.repo.FindByUserID(ctx, owner.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	return conversations, nil
}

// Touch refreshes the conversation's UpdatedAt so recency ordering follows
// message activity.
func (s *Service) Touch(ctx context.Context, conv *Conversation) error {
	conv.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, conv); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to touch conversation")
	}
	return nil
}

// DeleteConversation removes the conversation and its messages after
// verifying ownership.
func (s *Service) DeleteConversation(ctx context.Context, id uint, owner *user.User) error {
	conv, err := s.GetConversation(ctx, id, owner)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, conv.ID); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}

// GetMessages returns the conversation's messages ordered oldest first.
func (s *Service) GetMessages(ctx context.Context, conv *Conversation) ([]*Message, error) {
	messages, err := s.repo.FindMessages(ctx, conv.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load messages")
	}
	return messages, nil
}

// AddUserMessage appends the caller's message to the conversation.
func (s *Service) AddUserMessage(ctx context.Context, conv *Conversation, owner *user.User, content string, imageURL *string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message content is required", nil)
	}
	return s.appendMessage(ctx, &Message{
		ConversationID: conv.ID,
		UserID:         owner.ID,
		Kind:           MessageKindUser,
		Content:        content,
		ImageURL:       imageURL,
	})
}

// AddAssistantMessage appends a completed model reply to the conversation.
func (s *Service) AddAssistantMessage(ctx context.Context, conv *Conversation, owner *user.User, content, modelName string) (*Message, error) {
	if content == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "assistant content is required", nil)
	}
	return s.appendMessage(ctx, &Message{
		ConversationID: conv.ID,
		UserID:         owner.ID,
		Kind:           MessageKindAssistant,
		Content:        content,
		Model:          &modelName,
	})
}

// AddImageMessage records a generated image: the prompt as content, the
// stored image location, and the generating model.
func (s *Service) AddImageMessage(ctx context.Context, conv *Conversation, owner *user.User, prompt, imageURL, modelName string) (*Message, error) {
	if imageURL == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "image url is required", nil)
	}
	return s.appendMessage(ctx, &Message{
		ConversationID: conv.ID,
		UserID:         owner.ID,
		Kind:           MessageKindImage,
		Content:        prompt,
		ImageURL:       &imageURL,
		Model:          &modelName,
	})
}

// ListImageMessages returns the user's image messages across conversations,
// newest first.
func (s *Service) ListImageMessages(ctx context.Context, owner *user.User) ([]*Message, error) {
	messages, err := s.repo.FindImageMessagesByUserID(ctx, owner.ID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list image messages")
	}
	return messages, nil
}

func (s *Service) appendMessage(ctx context.Context, msg *Message) (*Message, error) {
	publicID, err := idgen.GenerateSecureID(messageIDPrefix, publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate message id", err)
	}
	msg.PublicID = publicID

	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to append message")
	}
	return msg, nil
}
