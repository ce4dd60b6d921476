// Package memory keeps users and reset records in process memory. It backs
// tests and the memory store driver; every method holds the store lock for
// its whole read-check-write sequence.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
)

type UserRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

func NewUserRepo() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return nil, ports.ErrDuplicateEmail
	}
	stored := cloneUser(user)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := r.now()
	stored.CreatedAt, stored.UpdatedAt = now, now
	if stored.Tokens == nil {
		stored.Tokens = []string{}
	}
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	return cloneUser(stored), nil
}

func (r *UserRepository) UpsertDelegated(ctx context.Context, email, username, provider, accountID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id, ok := r.byEmail[email]; ok {
		user := r.byID[id]
		user.Provider = &provider
		user.AccountID = &accountID
		user.UpdatedAt = now
		return cloneUser(user), nil
	}
	user := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Tokens:    []string{},
		Provider:  &provider,
		AccountID: &accountID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return cloneUser(user), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields ports.UserFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	if fields.Email != nil && *fields.Email != user.Email {
		if _, taken := r.byEmail[*fields.Email]; taken {
			return ports.ErrDuplicateEmail
		}
		delete(r.byEmail, user.Email)
		user.Email = *fields.Email
		r.byEmail[user.Email] = id
	}
	if fields.Username != nil {
		user.Username = *fields.Username
	}
	if fields.Phone != nil {
		phone := *fields.Phone
		user.Phone = &phone
	}
	if fields.PasswordHash != nil {
		hash := *fields.PasswordHash
		user.PasswordHash = &hash
	}
	user.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.UpdateFields(ctx, id, ports.UserFields{PasswordHash: &passwordHash})
}

func (r *UserRepository) AppendToken(ctx context.Context, id uuid.UUID, token string, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	if len(user.Tokens) >= max {
		return ports.ErrTokenLimitReached
	}
	user.Tokens = append(user.Tokens, token)
	user.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	idx := slices.Index(user.Tokens, token)
	if idx < 0 {
		return ports.ErrTokenNotFound
	}
	user.Tokens = slices.Delete(user.Tokens, idx, idx+1)
	user.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) ClearTokens(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	user.Tokens = []string{}
	user.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.byID, id)
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Tokens = slices.Clone(u.Tokens)
	return &clone
}
