package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	authvalidator "github.com/creedpetitt/ai-services-backend/internal/infrastructure/auth"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

const identityContextKey = "identity"

// OptionalAuth resolves the caller identity for every request. A valid
// bearer token yields an Authenticated identity backed by a persisted user
// record; no token at all yields an Anonymous identity keyed by client IP.
// A token that is present but invalid is rejected with 401 rather than
// silently downgraded to anonymous.
func OptionalAuth(validator *authvalidator.OIDCValidator, users *user.Service, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			setIdentity(c, domain.Anonymous{Address: c.ClientIP()})
			c.Next()
			return
		}

		if validator == nil {
			logger.Warn().Msg("bearer token presented but no validator configured")
			platformerrors.WriteUnauthorized(c, "authentication is not configured")
			c.Abort()
			return
		}

		claims, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Warn().Err(err).Msg("token validation failed")
			platformerrors.WriteUnauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		resolved, err := users.EnsureUser(c.Request.Context(), user.Identity{
			Provider: "oidc",
			Issuer:   claims.Issuer,
			Subject:  claims.Subject,
			Username: optionalString(claims.PreferredUsername),
			Email:    optionalString(claims.Email),
			Name:     optionalString(claims.Name),
			Picture:  optionalString(claims.Picture),
		})
		if err != nil {
			platformerrors.WriteError(c, err, logger)
			c.Abort()
			return
		}

		setIdentity(c, domain.Authenticated{User: resolved})
		c.Next()
	}
}

// RequireAuth aborts with 401 unless OptionalAuth resolved an authenticated
// identity earlier in the chain.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok || !identity.IsAuthenticated() {
			platformerrors.WriteUnauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFromContext returns the identity resolved by OptionalAuth.
func IdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityContextKey)
	if !ok {
		return nil, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

// UserFromContext returns the persisted user behind an authenticated identity.
func UserFromContext(c *gin.Context) (*user.User, bool) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return nil, false
	}
	authenticated, ok := identity.(domain.Authenticated)
	if !ok {
		return nil, false
	}
	return authenticated.User, true
}

func setIdentity(c *gin.Context, identity domain.Identity) {
	c.Set(identityContextKey, identity)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
