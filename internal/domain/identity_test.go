package domain

import (
	"testing"

	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
)

func TestQuotaKeysNeverCollideAcrossRegimes(t *testing.T) {
	authed := Authenticated{User: &user.User{ID: 42}}
	guest := Anonymous{Address: "203.0.113.7"}

	if authed.QuotaKey() != "user:42" {
		t.Errorf("QuotaKey() = %q", authed.QuotaKey())
	}
	if guest.QuotaKey() != "ip:203.0.113.7" {
		t.Errorf("QuotaKey() = %q", guest.QuotaKey())
	}
	if authed.QuotaKey() == guest.QuotaKey() {
		t.Error("quota keys collided across regimes")
	}
}

func TestClassIsBounded(t *testing.T) {
	if got := Class(Authenticated{User: &user.User{ID: 1}}); got != "user" {
		t.Errorf("Class(authenticated) = %q, want %q", got, "user")
	}
	if got := Class(Anonymous{Address: "203.0.113.7"}); got != "guest" {
		t.Errorf("Class(anonymous) = %q, want %q", got, "guest")
	}
	if got := Class(nil); got != "guest" {
		t.Errorf("Class(nil) = %q, want %q", got, "guest")
	}
}
