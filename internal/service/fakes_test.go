package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
	"github.com/njprem/accountd/internal/util"
)

type fakeUserRepo struct {
	createInput  *domain.User
	createResult *domain.User
	createErr    error

	upsertCalls []struct {
		email, username, provider, accountID string
	}
	upsertResult *domain.User
	upsertErr    error

	findByEmailInput  string
	findByEmailResult *domain.User
	findByEmailErr    error

	findByIDInput  uuid.UUID
	findByIDResult *domain.User
	findByIDErr    error

	updateFieldsInput ports.UserFields
	updateFieldsErr   error

	appendCalls []struct {
		id    uuid.UUID
		token string
		max   int
	}
	appendErr error

	removeCalls []string
	removeErr   error

	clearCalls []uuid.UUID
	clearErr   error

	deleteInput uuid.UUID
	deleteErr   error
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	clone := *user
	f.createInput = &clone
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createResult != nil {
		return f.createResult, nil
	}
	clone.ID = uuid.New()
	return &clone, nil
}

func (f *fakeUserRepo) UpsertDelegated(ctx context.Context, email, username, provider, accountID string) (*domain.User, error) {
	f.upsertCalls = append(f.upsertCalls, struct {
		email, username, provider, accountID string
	}{email, username, provider, accountID})
	return f.upsertResult, f.upsertErr
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.findByEmailInput = email
	if f.findByEmailErr != nil {
		return nil, f.findByEmailErr
	}
	if f.findByEmailResult == nil {
		return nil, ports.ErrNotFound
	}
	return f.findByEmailResult, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.findByIDInput = id
	if f.findByIDErr != nil {
		return nil, f.findByIDErr
	}
	if f.findByIDResult == nil {
		return nil, ports.ErrNotFound
	}
	return f.findByIDResult, nil
}

func (f *fakeUserRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields ports.UserFields) error {
	f.updateFieldsInput = fields
	return f.updateFieldsErr
}

func (f *fakeUserRepo) AppendToken(ctx context.Context, id uuid.UUID, token string, max int) error {
	f.appendCalls = append(f.appendCalls, struct {
		id    uuid.UUID
		token string
		max   int
	}{id, token, max})
	return f.appendErr
}

func (f *fakeUserRepo) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	f.removeCalls = append(f.removeCalls, token)
	return f.removeErr
}

func (f *fakeUserRepo) ClearTokens(ctx context.Context, id uuid.UUID) error {
	f.clearCalls = append(f.clearCalls, id)
	return f.clearErr
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleteInput = id
	return f.deleteErr
}

type fakeResetRepo struct {
	created   []*domain.ResetRecord
	createErr error

	findResult *domain.ResetRecord
	findErr    error

	redeemCalls []struct {
		id     ulid.ULID
		userID uuid.UUID
		hash   string
	}
	redeemErr error
}

func (f *fakeResetRepo) Create(ctx context.Context, record *domain.ResetRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *record
	f.created = append(f.created, &clone)
	return nil
}

func (f *fakeResetRepo) FindByID(ctx context.Context, id ulid.ULID) (*domain.ResetRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.findResult == nil {
		return nil, ports.ErrNotFound
	}
	clone := *f.findResult
	return &clone, nil
}

func (f *fakeResetRepo) Redeem(ctx context.Context, id ulid.ULID, userID uuid.UUID, passwordHash string) error {
	f.redeemCalls = append(f.redeemCalls, struct {
		id     ulid.ULID
		userID uuid.UUID
		hash   string
	}{id, userID, passwordHash})
	return f.redeemErr
}

type fakeSender struct {
	sent []struct {
		to, subject, body string
	}
	err error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.sent = append(f.sent, struct {
		to, subject, body string
	}{to, subject, body})
	return f.err
}

type fakeVerifier struct {
	identity *DelegatedIdentity
	err      error
	tokens   []string
}

func (f *fakeVerifier) Verify(ctx context.Context, idToken string) (*DelegatedIdentity, error) {
	f.tokens = append(f.tokens, idToken)
	return f.identity, f.err
}

// plainHasher keeps tests fast where bcrypt behaviour is not under test.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", util.ErrEmptyPassword
	}
	return "hashed:" + password, nil
}

func (plainHasher) Verify(password, digest string) bool {
	return digest == "hashed:"+password
}

var errBoom = errors.New("boom")

func newTestCodec() *util.TokenCodec {
	codec, err := util.NewTokenCodec("test-secret")
	if err != nil {
		panic(err)
	}
	return codec
}

func hashedUser(password string) *domain.User {
	hash := "hashed:" + password
	provider := domain.ProviderEmail
	return &domain.User{
		ID:           uuid.New(),
		Username:     "al",
		Email:        "a@b.com",
		PasswordHash: &hash,
		Provider:     &provider,
		Tokens:       []string{},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}
