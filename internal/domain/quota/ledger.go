// Package quota enforces per-identity usage ceilings for messages and
// generated images.
package quota

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
)

// Kind is the quota bucket being consumed.
type Kind string

const (
	KindMessage Kind = "message"
	KindImage   Kind = "image"
)

// Limits are the ceilings per identity class and kind.
type Limits struct {
	UserMessages  int
	UserImages    int
	GuestMessages int
	GuestImages   int
}

// DefaultLimits mirror the production ceilings.
var DefaultLimits = Limits{
	UserMessages:  50,
	UserImages:    5,
	GuestMessages: 10,
	GuestImages:   3,
}

type guestCounters struct {
	messages int
	images   int
}

// Ledger tracks consumption against the configured limits. Authenticated
// identities count against durable per-user counters; anonymous identities
// count against an in-memory map that lives for the process lifetime and is
// never evicted.
type Ledger struct {
	limits Limits
	users  user.Repository
	logger zerolog.Logger

	mu     sync.Mutex
	guests map[string]*guestCounters
}

// NewLedger constructs a Ledger. users may be nil only in tests that never
// pass an authenticated identity.
func NewLedger(limits Limits, users user.Repository, logger zerolog.Logger) *Ledger {
	return &Ledger{
		limits: limits,
		users:  users,
		logger: logger,
		guests: make(map[string]*guestCounters),
	}
}

// Allowed reports whether the identity still has budget for one more unit of
// the given kind.
func (l *Ledger) Allowed(ctx context.Context, identity domain.Identity, kind Kind) bool {
	return l.Remaining(ctx, identity, kind) > 0
}

// Remaining returns the identity's leftover budget for the kind, floored at
// zero.
func (l *Ledger) Remaining(_ context.Context, identity domain.Identity, kind Kind) int {
	remaining := l.ceiling(identity, kind) - l.count(identity, kind)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Increment advances the identity's counter for the kind by one. It never
// fails: persistence errors for authenticated identities are logged and the
// in-memory view still advances, so enforcement stays monotonic within the
// process.
func (l *Ledger) Increment(ctx context.Context, identity domain.Identity, kind Kind) {
	switch id := identity.(type) {
	case domain.Authenticated:
		switch kind {
		case KindImage:
			id.User.ImageCount++
		default:
			id.User.MessageCount++
		}
		if l.users == nil {
			return
		}
		var err error
		switch kind {
		case KindImage:
			err = l.users.IncrementImageCount(ctx, id.User.ID)
		default:
			err = l.users.IncrementMessageCount(ctx, id.User.ID)
		}
		if err != nil {
			l.logger.Warn().
				Err(err).
				Uint("user_id", id.User.ID).
				Str("kind", string(kind)).
				Msg("failed to persist quota counter")
		}
	default:
		l.mu.Lock()
		defer l.mu.Unlock()
		counters := l.guests[identity.QuotaKey()]
		if counters == nil {
			counters = &guestCounters{}
			l.guests[identity.QuotaKey()] = counters
		}
		switch kind {
		case KindImage:
			counters.images++
		default:
			counters.messages++
		}
	}
}

func (l *Ledger) ceiling(identity domain.Identity, kind Kind) int {
	if identity.IsAuthenticated() {
		if kind == KindImage {
			return l.limits.UserImages
		}
		return l.limits.UserMessages
	}
	if kind == KindImage {
		return l.limits.GuestImages
	}
	return l.limits.GuestMessages
}

func (l *Ledger) count(identity domain.Identity, kind Kind) int {
	switch id := identity.(type) {
	case domain.Authenticated:
		if kind == KindImage {
			return id.User.ImageCount
		}
		return id.User.MessageCount
	default:
		l.mu.Lock()
		defer l.mu.Unlock()
		counters := l.guests[identity.QuotaKey()]
		if counters == nil {
			return 0
		}
		if kind == KindImage {
			return counters.images
		}
		return counters.messages
	}
}
