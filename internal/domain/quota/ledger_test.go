package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
)

type mockUserRepo struct {
	mu             sync.Mutex
	messageIncs    map[uint]int
	imageIncs      map[uint]int
	incrementError error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		messageIncs: make(map[uint]int),
		imageIncs:   make(map[uint]int),
	}
}

func (m *mockUserRepo) FindByIssuerAndSubject(ctx context.Context, issuer, subject string) (*user.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserRepo) Upsert(ctx context.Context, u *user.User) (*user.User, error) {
	return u, nil
}

func (m *mockUserRepo) IncrementMessageCount(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementError != nil {
		return m.incrementError
	}
	m.messageIncs[id]++
	return nil
}

func (m *mockUserRepo) IncrementImageCount(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementError != nil {
		return m.incrementError
	}
	m.imageIncs[id]++
	return nil
}

func testLimits() Limits {
	return Limits{
		UserMessages:  5,
		UserImages:    2,
		GuestMessages: 3,
		GuestImages:   1,
	}
}

func TestLedger_GuestMessageCeiling(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(testLimits(), nil, zerolog.Nop())
	guest := domain.Anonymous{Address: "203.0.113.7"}

	for i := 0; i < 3; i++ {
		if !ledger.Allowed(ctx, guest, KindMessage) {
			t.Fatalf("iteration %d: expected message allowed", i)
		}
		ledger.Increment(ctx, guest, KindMessage)
	}

	if ledger.Allowed(ctx, guest, KindMessage) {
		t.Error("expected guest over message ceiling to be denied")
	}
	if got := ledger.Remaining(ctx, guest, KindMessage); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestLedger_KindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(testLimits(), nil, zerolog.Nop())
	guest := domain.Anonymous{Address: "203.0.113.7"}

	for i := 0; i < 3; i++ {
		ledger.Increment(ctx, guest, KindMessage)
	}

	if !ledger.Allowed(ctx, guest, KindImage) {
		t.Error("image budget should be untouched by message consumption")
	}
	if got := ledger.Remaining(ctx, guest, KindImage); got != 1 {
		t.Errorf("Remaining(image) = %d, want 1", got)
	}
}

func TestLedger_GuestsAreIsolatedByAddress(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(testLimits(), nil, zerolog.Nop())

	first := domain.Anonymous{Address: "203.0.113.7"}
	second := domain.Anonymous{Address: "198.51.100.9"}

	for i := 0; i < 3; i++ {
		ledger.Increment(ctx, first, KindMessage)
	}

	if ledger.Allowed(ctx, first, KindMessage) {
		t.Error("first guest should be exhausted")
	}
	if !ledger.Allowed(ctx, second, KindMessage) {
		t.Error("second guest should be unaffected")
	}
}

func TestLedger_AuthenticatedCountsFromUserRecord(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	ledger := NewLedger(testLimits(), repo, zerolog.Nop())

	u := &user.User{ID: 42, MessageCount: 4}
	identity := domain.Authenticated{User: u}

	if !ledger.Allowed(ctx, identity, KindMessage) {
		t.Fatal("one message left, expected allowed")
	}

	ledger.Increment(ctx, identity, KindMessage)

	if ledger.Allowed(ctx, identity, KindMessage) {
		t.Error("expected denial after reaching ceiling")
	}
	if u.MessageCount != 5 {
		t.Errorf("in-memory counter = %d, want 5", u.MessageCount)
	}
	if repo.messageIncs[42] != 1 {
		t.Errorf("persisted increments = %d, want 1", repo.messageIncs[42])
	}
}

func TestLedger_IncrementSurvivesPersistFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	repo.incrementError = errors.New("database down")
	ledger := NewLedger(testLimits(), repo, zerolog.Nop())

	u := &user.User{ID: 7}
	identity := domain.Authenticated{User: u}

	ledger.Increment(ctx, identity, KindImage)

	if u.ImageCount != 1 {
		t.Errorf("in-memory image counter = %d, want 1 despite persist failure", u.ImageCount)
	}
}

func TestLedger_RemainingFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(testLimits(), nil, zerolog.Nop())
	identity := domain.Authenticated{User: &user.User{ID: 1, ImageCount: 99}}

	if got := ledger.Remaining(ctx, identity, KindImage); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestLedger_ConcurrentGuestIncrements(t *testing.T) {
	ctx := context.Background()
	limits := Limits{GuestMessages: 10000, GuestImages: 1, UserMessages: 1, UserImages: 1}
	ledger := NewLedger(limits, nil, zerolog.Nop())
	guest := domain.Anonymous{Address: "203.0.113.7"}

	var wg sync.WaitGroup
	const workers = 50
	const perWorker = 20
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ledger.Increment(ctx, guest, KindMessage)
			}
		}()
	}
	wg.Wait()

	want := limits.GuestMessages - workers*perWorker
	if got := ledger.Remaining(ctx, guest, KindMessage); got != want {
		t.Errorf("Remaining = %d, want %d", got, want)
	}
}
