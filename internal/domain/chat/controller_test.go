package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/domain/model"
	"github.com/creedpetitt/ai-services-backend/internal/domain/quota"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// fakeBackend scripts a stream: fragments first, then either a clean close
// or a terminal error. hang keeps the stream open until the context dies.
type fakeBackend struct {
	name      string
	vision    bool
	fragments []string
	failWith  error
	hang      bool

	mu        sync.Mutex
	gotPrompt model.Prompt
	cancelled bool
}

func (f *fakeBackend) Name() string         { return f.name }
func (f *fakeBackend) SupportsImages() bool { return f.vision }

func (f *fakeBackend) Stream(ctx context.Context, prompt model.Prompt) (<-chan string, <-chan error, error) {
	f.mu.Lock()
	f.gotPrompt = prompt
	f.mu.Unlock()

	data := make(chan string)
	errs := make(chan error, 1)

	go func() {
		for _, fragment := range f.fragments {
			select {
			case data <- fragment:
			case <-ctx.Done():
				f.mu.Lock()
				f.cancelled = true
				f.mu.Unlock()
				return
			}
		}
		if f.hang {
			<-ctx.Done()
			f.mu.Lock()
			f.cancelled = true
			f.mu.Unlock()
			return
		}
		if f.failWith != nil {
			errs <- f.failWith
			return
		}
		close(data)
	}()

	return data, errs, nil
}

// bufferedBackend queues its whole script before returning, matching the
// channel shape of the production completion client: buffered fragment and
// error channels, the terminal error queued before the fragment channel
// closes. Both channels are ready the instant the consumer starts.
type bufferedBackend struct {
	name      string
	fragments []string
	failWith  error
}

func (b *bufferedBackend) Name() string         { return b.name }
func (b *bufferedBackend) SupportsImages() bool { return false }

func (b *bufferedBackend) Stream(ctx context.Context, prompt model.Prompt) (<-chan string, <-chan error, error) {
	data := make(chan string, 100)
	errs := make(chan error, 10)
	for _, fragment := range b.fragments {
		data <- fragment
	}
	if b.failWith != nil {
		errs <- b.failWith
	}
	close(data)
	return data, errs, nil
}

type recordingSink struct {
	mu        sync.Mutex
	fragments []string
	errs      []error
	closes    int
	failAfter int // Send fails once this many fragments got through; 0 = never
}

func (s *recordingSink) Send(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.fragments) >= s.failAfter {
		return errors.New("broken pipe")
	}
	s.fragments = append(s.fragments, fragment)
	return nil
}

func (s *recordingSink) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
}

// memoryRepo is an in-memory conversation.Repository.
type memoryRepo struct {
	mu            sync.Mutex
	conversations map[uint]*conversation.Conversation
	messages      []*conversation.Message
	nextID        uint
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{conversations: make(map[uint]*conversation.Conversation), nextID: 1}
}

func (m *memoryRepo) Create(ctx context.Context, conv *conversation.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.ID = m.nextID
	m.nextID++
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	m.conversations[conv.ID] = conv
	return nil
}

func (m *memoryRepo) FindByID(ctx context.Context, id uint) (*conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil)
	}
	return conv, nil
}

func (m *memoryRepo) FindByUserID(ctx context.Context, userID uint) ([]*conversation.Conversation, error) {
	return nil, nil
}

func (m *memoryRepo) Update(ctx context.Context, conv *conversation.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conv.ID] = conv
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, id)
	return nil
}

func (m *memoryRepo) AddMessage(ctx context.Context, msg *conversation.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextID
	m.nextID++
	msg.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memoryRepo) FindMessages(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*conversation.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memoryRepo) FindImageMessagesByUserID(ctx context.Context, userID uint) ([]*conversation.Message, error) {
	return nil, nil
}

func (m *memoryRepo) messagesOfKind(kind conversation.MessageKind) []*conversation.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*conversation.Message
	for _, msg := range m.messages {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

type fixture struct {
	controller *Controller
	ledger     *quota.Ledger
	repo       *memoryRepo
	backend    model.Backend
}

func newFixture(t *testing.T, backend model.Backend, limits quota.Limits, timeout time.Duration) *fixture {
	t.Helper()
	registry, err := model.NewRegistry(backend)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	repo := newMemoryRepo()
	ledger := quota.NewLedger(limits, nil, zerolog.Nop())
	controller := NewController(
		ledger,
		registry,
		conversation.NewService(repo),
		nil,
		"You are a helpful assistant.",
		timeout,
		zerolog.Nop(),
	)
	return &fixture{controller: controller, ledger: ledger, repo: repo, backend: backend}
}

func authedIdentity(id uint) domain.Authenticated {
	return domain.Authenticated{User: &user.User{ID: id, Issuer: "https://issuer.test", Subject: "sub"}}
}

func TestStreamTurn_AuthenticatedNewConversation(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"Hello", ", ", "world"}}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	identity := authedIdentity(1)
	sink := &recordingSink{}

	err := f.controller.StreamTurn(context.Background(), identity, TurnRequest{
		Content: "Say hello world please",
		Model:   "gpt-4o",
	}, sink)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}

	if got := strings.Join(sink.fragments, ""); got != "Hello, world" {
		t.Errorf("streamed %q, want %q", got, "Hello, world")
	}
	if sink.closes != 1 {
		t.Errorf("closes = %d, want 1", sink.closes)
	}
	if len(sink.errs) != 0 {
		t.Errorf("unexpected sink errors: %v", sink.errs)
	}

	if len(f.repo.conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(f.repo.conversations))
	}
	for _, conv := range f.repo.conversations {
		if conv.Title != "Say hello world please" {
			t.Errorf("Title = %q", conv.Title)
		}
		if conv.Model != "gpt-4o" {
			t.Errorf("Model = %q", conv.Model)
		}
	}

	userMsgs := f.repo.messagesOfKind(conversation.MessageKindUser)
	assistantMsgs := f.repo.messagesOfKind(conversation.MessageKindAssistant)
	if len(userMsgs) != 1 || len(assistantMsgs) != 1 {
		t.Fatalf("messages user=%d assistant=%d, want 1/1", len(userMsgs), len(assistantMsgs))
	}
	if assistantMsgs[0].Content != "Hello, world" {
		t.Errorf("assistant content = %q", assistantMsgs[0].Content)
	}

	if identity.User.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", identity.User.MessageCount)
	}

	// The system prompt and the current turn both reached the backend.
	if backend.gotPrompt.System == "" {
		t.Error("system prompt missing from backend prompt")
	}
	last := backend.gotPrompt.Turns[len(backend.gotPrompt.Turns)-1]
	if last.Role != model.RoleUser || last.Content != "Say hello world please" {
		t.Errorf("last turn = %+v", last)
	}
}

func TestStreamTurn_AnonymousNothingPersisted(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"hi"}}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	guest := domain.Anonymous{Address: "203.0.113.7"}
	sink := &recordingSink{}

	err := f.controller.StreamTurn(context.Background(), guest, TurnRequest{Content: "hello", Model: "gpt-4o"}, sink)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}

	if sink.closes != 1 {
		t.Errorf("closes = %d, want 1", sink.closes)
	}
	if len(f.repo.conversations) != 0 || len(f.repo.messages) != 0 {
		t.Error("anonymous turn must not persist anything")
	}
	if got := f.ledger.Remaining(context.Background(), guest, quota.KindMessage); got != quota.DefaultLimits.GuestMessages-1 {
		t.Errorf("Remaining = %d, want %d", got, quota.DefaultLimits.GuestMessages-1)
	}
}

func TestStreamTurn_QuotaExhaustedBeforeSideEffects(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"hi"}}
	limits := quota.Limits{UserMessages: 0, UserImages: 1, GuestMessages: 0, GuestImages: 1}
	f := newFixture(t, backend, limits, 0)
	sink := &recordingSink{}

	err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hello", Model: "gpt-4o"}, sink)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeRateLimited) {
		t.Fatalf("expected RateLimited, got %v", err)
	}
	if len(f.repo.conversations) != 0 || len(f.repo.messages) != 0 {
		t.Error("no side effects expected on quota rejection")
	}
	if sink.closes != 0 && len(sink.errs) != 0 {
		t.Error("sink must stay untouched on pre-stream failure")
	}
}

func TestStreamTurn_EmptyContentConsumesNoQuota(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o"}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	identity := authedIdentity(1)

	err := f.controller.StreamTurn(context.Background(), identity, TurnRequest{Content: "   ", Model: "gpt-4o"}, &recordingSink{})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
	if identity.User.MessageCount != 0 {
		t.Errorf("MessageCount = %d, want 0", identity.User.MessageCount)
	}
}

func TestStreamTurn_UnknownModel(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o"}
	f := newFixture(t, backend, quota.DefaultLimits, 0)

	err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "no-such"}, &recordingSink{})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Fatalf("expected Validation for unknown model, got %v", err)
	}
}

func TestStreamTurn_ImageAgainstTextOnlyModel(t *testing.T) {
	backend := &fakeBackend{name: "text-only", vision: false}
	f := newFixture(t, backend, quota.DefaultLimits, 0)

	err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{
		Content:  "what is in this picture",
		Model:    "text-only",
		ImageURL: "/v1/uploads/cat.png",
	}, &recordingSink{})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestStreamTurn_ModelFallsBackToConversation(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"again"}}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	identity := authedIdentity(1)

	// First turn creates the conversation bound to gpt-4o.
	if err := f.controller.StreamTurn(context.Background(), identity, TurnRequest{Content: "first", Model: "gpt-4o"}, &recordingSink{}); err != nil {
		t.Fatalf("first StreamTurn() error = %v", err)
	}

	var convID uint
	for id := range f.repo.conversations {
		convID = id
	}

	// Second turn names no model; the conversation's stored model applies.
	sink := &recordingSink{}
	if err := f.controller.StreamTurn(context.Background(), identity, TurnRequest{ConversationID: convID, Content: "second"}, sink); err != nil {
		t.Fatalf("second StreamTurn() error = %v", err)
	}
	if sink.closes != 1 {
		t.Errorf("closes = %d, want 1", sink.closes)
	}
}

func TestStreamTurn_ForeignConversationIsNotFound(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"x"}}
	f := newFixture(t, backend, quota.DefaultLimits, 0)

	if err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "mine", Model: "gpt-4o"}, &recordingSink{}); err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}
	var convID uint
	for id := range f.repo.conversations {
		convID = id
	}

	err := f.controller.StreamTurn(context.Background(), authedIdentity(2), TurnRequest{ConversationID: convID, Content: "not mine"}, &recordingSink{})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	// Anonymous callers can never reference stored conversations.
	err = f.controller.StreamTurn(context.Background(), domain.Anonymous{Address: "203.0.113.7"}, TurnRequest{ConversationID: convID, Content: "guest"}, &recordingSink{})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("expected NotFound for anonymous, got %v", err)
	}
}

func TestStreamTurn_UpstreamErrorLeavesNoAssistantMessage(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"par", "tial"}, failWith: errors.New("upstream 500")}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	sink := &recordingSink{}

	err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"}, sink)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v (post-stream failures go to the sink)", err)
	}

	if len(sink.errs) != 1 {
		t.Fatalf("sink errors = %d, want 1", len(sink.errs))
	}
	if !platformerrors.IsErrorType(sink.errs[0], platformerrors.ErrorTypeExternal) {
		t.Errorf("expected External, got %v", sink.errs[0])
	}
	if sink.closes != 0 {
		t.Errorf("closes = %d, want 0 after error", sink.closes)
	}
	if got := len(f.repo.messagesOfKind(conversation.MessageKindAssistant)); got != 0 {
		t.Errorf("assistant messages = %d, want 0", got)
	}
	// The user message was already persisted before the stream.
	if got := len(f.repo.messagesOfKind(conversation.MessageKindUser)); got != 1 {
		t.Errorf("user messages = %d, want 1", got)
	}
}

func TestStreamTurn_QueuedFragmentsDeliveredBeforeError(t *testing.T) {
	// Both channels are ready at once here, so a naive select could surface
	// the error before the text produced ahead of it. Repeat to shake out
	// scheduling luck.
	for i := 0; i < 50; i++ {
		backend := &bufferedBackend{name: "gpt-4o", fragments: []string{"Hel", "lo"}, failWith: errors.New("upstream reset")}
		f := newFixture(t, backend, quota.DefaultLimits, 0)
		sink := &recordingSink{}

		err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"}, sink)
		if err != nil {
			t.Fatalf("iteration %d: StreamTurn() error = %v", i, err)
		}

		if got := strings.Join(sink.fragments, ""); got != "Hello" {
			t.Fatalf("iteration %d: forwarded %q before the error, want %q", i, got, "Hello")
		}
		if len(sink.errs) != 1 {
			t.Fatalf("iteration %d: sink errors = %d, want 1", i, len(sink.errs))
		}
		if sink.closes != 0 {
			t.Fatalf("iteration %d: closes = %d, want 0 after error", i, sink.closes)
		}
		if got := len(f.repo.messagesOfKind(conversation.MessageKindAssistant)); got != 0 {
			t.Fatalf("iteration %d: assistant messages = %d, want 0", i, got)
		}
	}
}

func TestStreamTurn_DuplicateTerminalSignalsFinalizeOnce(t *testing.T) {
	// The backend both queues a terminal error and closes the fragment
	// channel, so completion and failure are signalled for the same session.
	// Exactly one of them may reach the sink, and the partial answer must
	// not be persisted.
	backend := &bufferedBackend{name: "gpt-4o", fragments: []string{"partial"}, failWith: errors.New("late failure")}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	sink := &recordingSink{}

	if err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"}, sink); err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}

	if terminal := sink.closes + len(sink.errs); terminal != 1 {
		t.Fatalf("terminal signals = %d (closes=%d errs=%d), want exactly 1", terminal, sink.closes, len(sink.errs))
	}
	if len(sink.errs) != 1 {
		t.Errorf("expected the failure to win over completion, got closes=%d errs=%d", sink.closes, len(sink.errs))
	}
	if got := len(f.repo.messagesOfKind(conversation.MessageKindAssistant)); got != 0 {
		t.Errorf("assistant messages = %d, want 0", got)
	}
}

func TestFinishCompletedAfterFinalizationIsNoOp(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o"}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	identity := authedIdentity(1)

	prepared, err := f.controller.prepare(context.Background(), identity, TurnRequest{Content: "hi", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}

	var latch finalizeLatch
	sink := &recordingSink{}

	// A second completion signal after finalization changes nothing.
	f.controller.finishCompleted(context.Background(), identity, prepared, "answer", sink, &latch)
	f.controller.finishCompleted(context.Background(), identity, prepared, "answer", sink, &latch)

	if sink.closes != 1 {
		t.Errorf("closes = %d, want 1", sink.closes)
	}
	if got := len(f.repo.messagesOfKind(conversation.MessageKindAssistant)); got != 1 {
		t.Errorf("assistant messages = %d, want 1", got)
	}

	// A completion signal after an error finalized the session persists
	// nothing and never closes the sink.
	var errLatch finalizeLatch
	errSink := &recordingSink{}
	errLatch.Do(func() { errSink.Error(errors.New("already failed")) })

	before := len(f.repo.messagesOfKind(conversation.MessageKindAssistant))
	f.controller.finishCompleted(context.Background(), identity, prepared, "late answer", errSink, &errLatch)

	if errSink.closes != 0 {
		t.Errorf("closes = %d, want 0 after prior failure", errSink.closes)
	}
	if got := len(f.repo.messagesOfKind(conversation.MessageKindAssistant)); got != before {
		t.Errorf("assistant messages grew from %d to %d after finalization", before, got)
	}
}

func TestStreamTurn_ClientDisconnect(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"a", "b", "c", "d"}, hang: true}
	f := newFixture(t, backend, quota.DefaultLimits, 0)
	sink := &recordingSink{failAfter: 2}

	err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"}, sink)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v, disconnect is not a failure", err)
	}

	if len(sink.fragments) != 2 {
		t.Errorf("forwarded %d fragments, want 2", len(sink.fragments))
	}
	if sink.closes != 0 || len(sink.errs) != 0 {
		t.Error("disconnect must neither close nor error the sink")
	}

	// Upstream gets cancelled.
	deadline := time.After(time.Second)
	for {
		backend.mu.Lock()
		cancelled := backend.cancelled
		backend.mu.Unlock()
		if cancelled {
			break
		}
		select {
		case <-deadline:
			t.Fatal("upstream was not cancelled after disconnect")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := len(f.repo.messagesOfKind(conversation.MessageKindAssistant)); got != 0 {
		t.Errorf("assistant messages = %d, want 0 after disconnect", got)
	}
}

func TestStreamTurn_SessionTimeout(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"slow"}, hang: true}
	f := newFixture(t, backend, quota.DefaultLimits, 30*time.Millisecond)
	sink := &recordingSink{}

	err := f.controller.StreamTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"}, sink)
	if err != nil {
		t.Fatalf("StreamTurn() error = %v", err)
	}

	if len(sink.errs) != 1 {
		t.Fatalf("sink errors = %d, want 1", len(sink.errs))
	}
	if !platformerrors.IsErrorType(sink.errs[0], platformerrors.ErrorTypeTimeout) {
		t.Errorf("expected Timeout, got %v", sink.errs[0])
	}
	if sink.closes != 0 {
		t.Error("timed out session must not also close the sink")
	}
}

func TestCompleteTurn(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", fragments: []string{"whole ", "answer"}}
	f := newFixture(t, backend, quota.DefaultLimits, 0)

	result, err := f.controller.CompleteTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("CompleteTurn() error = %v", err)
	}
	if result.Content != "whole answer" {
		t.Errorf("Content = %q", result.Content)
	}
	if result.Conversation == nil {
		t.Fatal("expected conversation on result")
	}
	if result.Model != "gpt-4o" {
		t.Errorf("Model = %q", result.Model)
	}
}

func TestCompleteTurn_UpstreamError(t *testing.T) {
	backend := &fakeBackend{name: "gpt-4o", failWith: errors.New("boom")}
	f := newFixture(t, backend, quota.DefaultLimits, 0)

	_, err := f.controller.CompleteTurn(context.Background(), authedIdentity(1), TurnRequest{Content: "hi", Model: "gpt-4o"})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal) {
		t.Fatalf("expected External, got %v", err)
	}
}
