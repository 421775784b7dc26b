package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
)

func newAuthTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	return c, recorder
}

func TestOptionalAuthResolvesAnonymousWithoutToken(t *testing.T) {
	c, _ := newAuthTestContext(t)
	c.Request.RemoteAddr = "203.0.113.7:51234"

	OptionalAuth(nil, nil, zerolog.Nop())(c)

	identity, ok := IdentityFromContext(c)
	if !ok {
		t.Fatal("identity not set")
	}
	anon, ok := identity.(domain.Anonymous)
	if !ok {
		t.Fatalf("expected anonymous identity, got %T", identity)
	}
	if anon.Address != "203.0.113.7" {
		t.Errorf("expected client ip identity, got %q", anon.Address)
	}
	if identity.IsAuthenticated() {
		t.Error("anonymous identity must not report authenticated")
	}
}

func TestOptionalAuthRejectsTokenWithoutValidator(t *testing.T) {
	c, recorder := newAuthTestContext(t)
	c.Request.Header.Set("Authorization", "Bearer some-token")

	OptionalAuth(nil, nil, zerolog.Nop())(c)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", recorder.Code)
	}
	if !c.IsAborted() {
		t.Error("expected request to be aborted")
	}
}

func TestRequireAuthRejectsUnresolvedIdentity(t *testing.T) {
	c, recorder := newAuthTestContext(t)

	RequireAuth()(c)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", recorder.Code)
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	c, recorder := newAuthTestContext(t)
	setIdentity(c, domain.Anonymous{Address: "203.0.113.7"})

	RequireAuth()(c)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", recorder.Code)
	}
}

func TestRequireAuthPassesAuthenticated(t *testing.T) {
	c, recorder := newAuthTestContext(t)
	setIdentity(c, domain.Authenticated{User: &user.User{ID: 7}})

	RequireAuth()(c)

	if c.IsAborted() {
		t.Error("authenticated request must not be aborted")
	}
	if recorder.Code != http.StatusOK {
		t.Errorf("unexpected status %d", recorder.Code)
	}
}

func TestUserFromContext(t *testing.T) {
	c, _ := newAuthTestContext(t)
	if _, ok := UserFromContext(c); ok {
		t.Error("expected no user before identity resolution")
	}

	setIdentity(c, domain.Anonymous{Address: "203.0.113.7"})
	if _, ok := UserFromContext(c); ok {
		t.Error("expected no user behind an anonymous identity")
	}

	setIdentity(c, domain.Authenticated{User: &user.User{ID: 7}})
	resolved, ok := UserFromContext(c)
	if !ok || resolved.ID != 7 {
		t.Errorf("expected user 7, got %+v ok=%v", resolved, ok)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"empty", "", "", false},
		{"no scheme", "token-only", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"bearer", "Bearer abc", "abc", true},
		{"case insensitive scheme", "bearer abc", "abc", true},
		{"blank token", "Bearer   ", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newAuthTestContext(t)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			token, ok := bearerToken(c)
			if ok != tc.ok || token != tc.token {
				t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, token, ok, tc.token, tc.ok)
			}
		})
	}
}
