package domain

import (
	"fmt"

	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
)

// Identity is the resolved caller for a single request. Exactly two
// implementations exist: Authenticated wraps a persisted user, Anonymous
// wraps a client address. Resolution happens once, in the HTTP layer.
type Identity interface {
	// QuotaKey is a stable key for quota accounting within the identity's
	// regime. Keys from different regimes never collide.
	QuotaKey() string
	IsAuthenticated() bool
}

// Authenticated is a caller backed by a durable user record.
type Authenticated struct {
	User *user.User
}

func (a Authenticated) QuotaKey() string {
	return fmt.Sprintf("user:%d", a.User.ID)
}

func (a Authenticated) IsAuthenticated() bool { return true }

// Anonymous is a caller known only by network address.
type Anonymous struct {
	Address string
}

func (a Anonymous) QuotaKey() string {
	return "ip:" + a.Address
}

func (a Anonymous) IsAuthenticated() bool { return false }

// Class names the identity's quota regime: "user" for authenticated
// callers, "guest" otherwise. Two values only, so it is safe as a metric
// label where the per-caller QuotaKey would be unbounded.
func Class(identity Identity) string {
	if identity != nil && identity.IsAuthenticated() {
		return "user"
	}
	return "guest"
}
