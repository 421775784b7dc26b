// Package user provides user domain models and behaviors.
package user

import (
	"context"
	"errors"
	"time"

	"github.com/creedpetitt/ai-services-backend/internal/utils/idgen"
)

// User models an application user resolved from an external identity
// provider. MessageCount and ImageCount are the durable quota counters.
type User struct {
	ID           uint
	PublicID     string
	AuthProvider string
	Issuer       string
	Subject      string
	Username     *string
	Email        *string
	Name         *string
	Picture      *string
	MessageCount int
	ImageCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity encapsulates the externally provided identity attributes.
type Identity struct {
	Provider string
	Issuer   string
	Subject  string
	Username *string
	Email    *string
	Name     *string
	Picture  *string
}

// Repository defines storage operations for users.
type Repository interface {
	FindByIssuerAndSubject(ctx context.Context, issuer, subject string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Upsert(ctx context.Context, user *User) (*User, error)
	IncrementMessageCount(ctx context.Context, id uint) error
	IncrementImageCount(ctx context.Context, id uint) error
}

// ErrInvalidIdentity indicates missing issuer or subject on the identity payload.
var ErrInvalidIdentity = errors.New("invalid identity: issuer and subject are required")

// Service persists and resolves users from external identities.
type Service struct {
	repo Repository
}

// NewService constructs a Service with required dependencies.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureUser persists the given identity and returns the internal user
// record, creating it on first sight. Counters on an existing record are
// preserved by the upsert.
func (s *Service) EnsureUser(ctx context.Context, identity Identity) (*User, error) {
	if identity.Issuer == "" || identity.Subject == "" {
		return nil, ErrInvalidIdentity
	}

	authProvider := identity.Provider
	if authProvider == "" {
		authProvider = "oidc"
	}

	// Ignored by the upsert when the user already exists.
	publicID, err := idgen.GenerateSecureID("user", 16)
	if err != nil {
		return nil, err
	}

	user := &User{
		PublicID:     publicID,
		AuthProvider: authProvider,
		Issuer:       identity.Issuer,
		Subject:      identity.Subject,
		Username:     identity.Username,
		Email:        identity.Email,
		Name:         identity.Name,
		Picture:      identity.Picture,
	}

	return s.repo.Upsert(ctx, user)
}
