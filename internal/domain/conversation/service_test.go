package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/utils/idgen"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

type mockRepository struct {
	conversations map[uint]*Conversation
	messages      []*Message
	nextID        uint
	updateCalls   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		conversations: make(map[uint]*Conversation),
		nextID:        1,
	}
}

func (m *mockRepository) Create(ctx context.Context, conv *Conversation) error {
	conv.ID = m.nextID
	m.nextID++
	conv.CreatedAt = time.Now().UTC()
	conv.UpdatedAt = conv.CreatedAt
	m.conversations[conv.ID] = conv
	return nil
}

func (m *mockRepository) FindByID(ctx context.Context, id uint) (*Conversation, error) {
	conv, ok := m.conversations[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil)
	}
	return conv, nil
}

func (m *mockRepository) FindByUserID(ctx context.Context, userID uint) ([]*Conversation, error) {
	var out []*Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, conv *Conversation) error {
	m.updateCalls++
	m.conversations[conv.ID] = conv
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id uint) error {
	delete(m.conversations, id)
	return nil
}

func (m *mockRepository) AddMessage(ctx context.Context, msg *Message) error {
	msg.ID = m.nextID
	m.nextID++
	msg.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockRepository) FindMessages(ctx context.Context, conversationID uint) ([]*Message, error) {
	var out []*Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockRepository) FindImageMessagesByUserID(ctx context.Context, userID uint) ([]*Message, error) {
	var out []*Message
	for _, msg := range m.messages {
		if msg.UserID == userID && msg.Kind == MessageKindImage {
			out = append(out, msg)
		}
	}
	return out, nil
}

func testUser(id uint) *user.User {
	return &user.User{ID: id, Issuer: "https://issuer.test", Subject: "sub"}
}

func TestService_CreateConversation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, testUser(1), "Explain channels", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if conv.ID == 0 {
		t.Error("expected assigned ID")
	}
	if !idgen.ValidateIDFormat(conv.PublicID, "conv") {
		t.Errorf("PublicID = %q, want conv_ prefix", conv.PublicID)
	}
	if conv.Model != "gpt-4o" {
		t.Errorf("Model = %q", conv.Model)
	}
}

func TestService_CreateConversation_Validation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	t.Run("missing model", func(t *testing.T) {
		_, err := svc.CreateConversation(ctx, testUser(1), "title", "  ")
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("blank title defaults", func(t *testing.T) {
		conv, err := svc.CreateConversation(ctx, testUser(1), "  ", "gpt-4o")
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		if conv.Title != "New Conversation" {
			t.Errorf("Title = %q", conv.Title)
		}
	})

	t.Run("nil owner", func(t *testing.T) {
		_, err := svc.CreateConversation(ctx, nil, "title", "gpt-4o")
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestService_GetConversation_Ownership(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	owner := testUser(1)
	conv, err := svc.CreateConversation(ctx, owner, "mine", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	got, err := svc.GetConversation(ctx, conv.ID, owner)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.ID != conv.ID {
		t.Errorf("got conversation %d, want %d", got.ID, conv.ID)
	}

	// A foreign conversation reads as not found, not forbidden.
	_, err = svc.GetConversation(ctx, conv.ID, testUser(2))
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("expected NotFound for foreign owner, got %v", err)
	}

	_, err = svc.GetConversation(ctx, 999, owner)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("expected NotFound for missing id, got %v", err)
	}
}

func TestService_Touch(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, testUser(1), "t", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	before := conv.UpdatedAt
	time.Sleep(5 * time.Millisecond)
	if err := svc.Touch(ctx, conv); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if !conv.UpdatedAt.After(before) {
		t.Error("UpdatedAt did not advance")
	}
	if repo.updateCalls != 1 {
		t.Errorf("updateCalls = %d, want 1", repo.updateCalls)
	}
}

func TestService_Messages(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	owner := testUser(1)

	conv, err := svc.CreateConversation(ctx, owner, "t", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if _, err := svc.AddUserMessage(ctx, conv, owner, "   ", nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("blank user message: expected validation error, got %v", err)
	}

	userMsg, err := svc.AddUserMessage(ctx, conv, owner, "hello", nil)
	if err != nil {
		t.Fatalf("AddUserMessage() error = %v", err)
	}
	if !idgen.ValidateIDFormat(userMsg.PublicID, "msg") {
		t.Errorf("PublicID = %q, want msg_ prefix", userMsg.PublicID)
	}

	if _, err := svc.AddAssistantMessage(ctx, conv, owner, "", "gpt-4o"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("empty assistant message: expected validation error, got %v", err)
	}

	if _, err := svc.AddAssistantMessage(ctx, conv, owner, "hi there", "gpt-4o"); err != nil {
		t.Fatalf("AddAssistantMessage() error = %v", err)
	}

	if _, err := svc.AddImageMessage(ctx, conv, owner, "a cat", "/v1/uploads/abc.png", "dall-e-3"); err != nil {
		t.Fatalf("AddImageMessage() error = %v", err)
	}

	messages, err := svc.GetMessages(ctx, conv)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	wantKinds := []MessageKind{MessageKindUser, MessageKindAssistant, MessageKindImage}
	for i, kind := range wantKinds {
		if messages[i].Kind != kind {
			t.Errorf("messages[%d].Kind = %q, want %q", i, messages[i].Kind, kind)
		}
	}

	images, err := svc.ListImageMessages(ctx, owner)
	if err != nil {
		t.Fatalf("ListImageMessages() error = %v", err)
	}
	if len(images) != 1 {
		t.Errorf("got %d image messages, want 1", len(images))
	}
}

func TestService_DeleteConversation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	owner := testUser(1)

	conv, err := svc.CreateConversation(ctx, owner, "t", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if err := svc.DeleteConversation(ctx, conv.ID, testUser(2)); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("foreign delete: expected NotFound, got %v", err)
	}

	if err := svc.DeleteConversation(ctx, conv.ID, owner); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}

	if _, err := svc.GetConversation(ctx, conv.ID, owner); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}
