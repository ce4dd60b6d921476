package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/njprem/accountd/internal/domain"
)

// UserFields is a profile update after hashing: PasswordHash replaces the
// plaintext slot of domain.ProfileUpdate.
type UserFields struct {
	Username     *string
	Email        *string
	Phone        *string
	PasswordHash *string
}

// UserRepository persists users and their bounded session-token lists. Every
// token-list mutation is a single conditional write keyed by user id.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpsertDelegated(ctx context.Context, email, username, provider, accountID string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields UserFields) error
	// AppendToken adds token only while the list holds fewer than max entries.
	// It returns ErrTokenLimitReached when the list is full and ErrNotFound when
	// the user does not exist.
	AppendToken(ctx context.Context, id uuid.UUID, token string, max int) error
	// RemoveToken drops exactly token, leaving the order of the others intact.
	// It returns ErrTokenNotFound when token is not in the list.
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error
	ClearTokens(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
