package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
	"github.com/njprem/accountd/internal/util"
)

type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

type AuthResult struct {
	Token string
	User  *domain.UserProfile
}

// DelegatedIdentity is what an external identity provider vouches for.
type DelegatedIdentity struct {
	Provider  string
	AccountID string
	Email     string
	Name      string
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*DelegatedIdentity, error)
}

type AuthService struct {
	users      ports.UserRepository
	hasher     util.PasswordHasher
	codec      *util.TokenCodec
	maxDevices int
	sessionTTL time.Duration
	delegated  IDTokenVerifier
}

func NewAuthService(users ports.UserRepository, hasher util.PasswordHasher, codec *util.TokenCodec, maxDevices int, sessionTTL time.Duration, delegated IDTokenVerifier) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		codec:      codec,
		maxDevices: maxDevices,
		sessionTTL: sessionTTL,
		delegated:  delegated,
	}
}

// MaxDevices is the configured per-user session cap.
func (s *AuthService) MaxDevices() int {
	return s.maxDevices
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.UserProfile, error) {
	email := util.NormalizeEmail(in.Email)
	if err := validateFields(
		field{"email", email, util.KindEmail},
		field{"password", in.Password, util.KindPassword},
		field{"username", in.Username, util.KindString},
		field{"phone", in.Phone, util.KindPhone},
	); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !isNotFound(err) {
		return nil, storeErr("find user by email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	provider := domain.ProviderEmail
	phone := in.Phone
	user, err := s.users.Create(ctx, &domain.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		Phone:        &phone,
		PasswordHash: &hash,
		Tokens:       []string{},
		Provider:     &provider,
	})
	if err != nil {
		if errors.Is(err, ports.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeErr("create user", err)
	}
	return user.Profile(), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = util.NormalizeEmail(email)
	if err := validateFields(
		field{"email", email, util.KindEmail},
		field{"password", password, util.KindPassword},
	); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr("find user by email", err)
	}
	if user.PasswordHash == nil || !s.hasher.Verify(password, *user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, user, domain.ProviderEmail)
}

// LoginWithGoogle exchanges a Google ID token for a session, creating or
// linking the account by email.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.delegated == nil {
		return nil, ErrDelegatedLoginDisabled
	}
	identity, err := s.delegated.Verify(ctx, idToken)
	if err != nil {
		return nil, errors.Join(ErrInvalidCredentials, err)
	}
	email := util.NormalizeEmail(identity.Email)
	if !util.IsEmail(email) {
		return nil, ErrInvalidCredentials
	}
	username := strings.TrimSpace(identity.Name)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	user, err := s.users.UpsertDelegated(ctx, email, username, identity.Provider, identity.AccountID)
	if err != nil {
		return nil, storeErr("upsert delegated user", err)
	}
	return s.startSession(ctx, user, identity.Provider)
}

// startSession issues a token and stores it only if the device cap allows.
// A token refused by the store is dropped and never returned.
func (s *AuthService) startSession(ctx context.Context, user *domain.User, provider string) (*AuthResult, error) {
	if len(user.Tokens) >= s.maxDevices {
		return nil, ErrDeviceLimitExceeded
	}
	token, err := s.codec.IssueSession(user.ID, provider, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.users.AppendToken(ctx, user.ID, token, s.maxDevices); err != nil {
		switch {
		case errors.Is(err, ports.ErrTokenLimitReached):
			return nil, ErrDeviceLimitExceeded
		case isNotFound(err):
			return nil, ErrInvalidCredentials
		default:
			return nil, storeErr("append token", err)
		}
	}
	return &AuthResult{Token: token, User: user.Profile()}, nil
}

// Authenticate resolves a bearer token to its claims, requiring the token to
// still be one of the user's live sessions.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*util.SessionClaims, error) {
	claims, err := s.codec.VerifySession(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("find user by id", err)
	}
	if !user.HasToken(token) {
		return nil, ErrSessionAlreadyInvalid
	}
	return claims, nil
}

// Logout revokes exactly one device session.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.users.RemoveToken(ctx, userID, token); err != nil {
		switch {
		case errors.Is(err, ports.ErrTokenNotFound):
			return ErrSessionAlreadyInvalid
		case isNotFound(err):
			return ErrUserNotFound
		default:
			return storeErr("remove token", err)
		}
	}
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("find user by id", err)
	}
	return user.Profile(), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate) error {
	if update.IsEmpty() {
		return ErrNoFieldsProvided
	}

	var checks []field
	fields := ports.UserFields{Phone: update.Phone}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		fields.Username = &username
		checks = append(checks, field{"username", *update.Username, util.KindString})
	}
	if update.Email != nil {
		email := util.NormalizeEmail(*update.Email)
		fields.Email = &email
		checks = append(checks, field{"email", email, util.KindEmail})
	}
	if update.Phone != nil {
		checks = append(checks, field{"phone", *update.Phone, util.KindPhone})
	}
	if update.Password != nil {
		checks = append(checks, field{"password", *update.Password, util.KindPassword})
	}
	if err := validateFields(checks...); err != nil {
		return err
	}

	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return err
		}
		fields.PasswordHash = &hash
	}

	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		switch {
		case isNotFound(err):
			return ErrUserNotFound
		case errors.Is(err, ports.ErrDuplicateEmail):
			return ErrDuplicateEmail
		default:
			return storeErr("update user fields", err)
		}
	}
	return nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return storeErr("delete user", err)
	}
	return nil
}

type field struct {
	name  string
	value string
	kind  util.Kind
}

func validateFields(fields ...field) error {
	for _, f := range fields {
		if res := util.Validate(f.value, f.kind); !res.Valid {
			return &ValidationError{Field: f.name, Message: res.Message}
		}
	}
	return nil
}
