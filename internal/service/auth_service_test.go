package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/memory"
	"github.com/njprem/accountd/internal/repository/ports"
	"github.com/njprem/accountd/internal/util"
)

const testMaxDevices = 3

func newAuthServiceForTests(users ports.UserRepository, verifier IDTokenVerifier) *AuthService {
	return NewAuthService(users, plainHasher{}, newTestCodec(), testMaxDevices, 0, verifier)
}

func validRegistration() RegisterInput {
	return RegisterInput{Username: "al", Email: "a@b.com", Phone: "01234567890", Password: "Abc123!@"}
}

func TestRegisterStoresBcryptDigest(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepo()
	svc := NewAuthService(users, util.NewBcryptHasher(), newTestCodec(), testMaxDevices, 0, nil)

	profile, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.Email != "a@b.com" || profile.Username != "al" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	stored, err := users.FindByID(ctx, profile.ID)
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if stored.PasswordHash == nil || *stored.PasswordHash == "Abc123!@" {
		t.Fatal("password must not be stored in plaintext")
	}
	if !util.NewBcryptHasher().Verify("Abc123!@", *stored.PasswordHash) {
		t.Fatal("stored digest should verify against the original password")
	}
	if len(stored.Tokens) != 0 {
		t.Fatalf("new user should have no sessions, got %v", stored.Tokens)
	}

	_, err = svc.Register(ctx, validRegistration())
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := newAuthServiceForTests(repo, nil)

	in := validRegistration()
	in.Email = "  A@B.com "
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.createInput.Email != "a@b.com" {
		t.Fatalf("email should be normalized, got %q", repo.createInput.Email)
	}
	if repo.createInput.Provider == nil || *repo.createInput.Provider != domain.ProviderEmail {
		t.Fatal("expected email provider on local accounts")
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"weak password", func(in *RegisterInput) { in.Password = "weakpass" }, "password"},
		{"blank username", func(in *RegisterInput) { in.Username = "  " }, "username"},
		{"short phone", func(in *RegisterInput) { in.Phone = "0123" }, "phone"},
		{"email reported first", func(in *RegisterInput) { in.Email = "x"; in.Phone = "1" }, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeUserRepo{}
			svc := newAuthServiceForTests(repo, nil)
			in := validRegistration()
			tc.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
			if repo.createInput != nil {
				t.Fatal("nothing should be persisted on invalid input")
			}
		})
	}
}

func TestRegisterStoreFailure(t *testing.T) {
	repo := &fakeUserRepo{findByEmailErr: errBoom}
	svc := newAuthServiceForTests(repo, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrStore) || !errors.Is(err, errBoom) {
		t.Fatalf("expected store error wrapping cause, got %v", err)
	}
}

func TestRegisterDuplicateRaceMapsStoreConflict(t *testing.T) {
	repo := &fakeUserRepo{createErr: ports.ErrDuplicateEmail}
	svc := newAuthServiceForTests(repo, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Run("user not found", func(t *testing.T) {
		repo := &fakeUserRepo{}
		svc := newAuthServiceForTests(repo, nil)

		_, err := svc.Login(context.Background(), "none@example.com", "Abc123!@")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("password mismatch", func(t *testing.T) {
		repo := &fakeUserRepo{findByEmailResult: hashedUser("Other123!@")}
		svc := newAuthServiceForTests(repo, nil)

		_, err := svc.Login(context.Background(), "a@b.com", "Abc123!@")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if len(repo.appendCalls) != 0 {
			t.Fatal("no token should be issued on a failed login")
		}
	})

	t.Run("delegated account has no password", func(t *testing.T) {
		user := hashedUser("x")
		user.PasswordHash = nil
		repo := &fakeUserRepo{findByEmailResult: user}
		svc := newAuthServiceForTests(repo, nil)

		_, err := svc.Login(context.Background(), "a@b.com", "Abc123!@")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	user := hashedUser("Abc123!@")
	repo := &fakeUserRepo{findByEmailResult: user}
	svc := newAuthServiceForTests(repo, nil)

	result, err := svc.Login(context.Background(), "A@B.com", "Abc123!@")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.appendCalls) != 1 || repo.appendCalls[0].token != result.Token || repo.appendCalls[0].max != testMaxDevices {
		t.Fatalf("unexpected append calls: %+v", repo.appendCalls)
	}
	claims, err := svc.codec.VerifySession(result.Token)
	if err != nil {
		t.Fatalf("issued token should verify: %v", err)
	}
	if claims.UserID != user.ID || claims.Provider != domain.ProviderEmail {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginAtDeviceCap(t *testing.T) {
	t.Run("rejected before issuing", func(t *testing.T) {
		user := hashedUser("Abc123!@")
		user.Tokens = []string{"t1", "t2", "t3"}
		repo := &fakeUserRepo{findByEmailResult: user}
		svc := newAuthServiceForTests(repo, nil)

		_, err := svc.Login(context.Background(), "a@b.com", "Abc123!@")
		if !errors.Is(err, ErrDeviceLimitExceeded) {
			t.Fatalf("expected ErrDeviceLimitExceeded, got %v", err)
		}
		if len(repo.appendCalls) != 0 {
			t.Fatal("store should not be touched at the cap")
		}
	})

	t.Run("store refuses the append", func(t *testing.T) {
		repo := &fakeUserRepo{findByEmailResult: hashedUser("Abc123!@"), appendErr: ports.ErrTokenLimitReached}
		svc := newAuthServiceForTests(repo, nil)

		result, err := svc.Login(context.Background(), "a@b.com", "Abc123!@")
		if !errors.Is(err, ErrDeviceLimitExceeded) {
			t.Fatalf("expected ErrDeviceLimitExceeded, got %v", err)
		}
		if result != nil {
			t.Fatal("refused token must not be returned")
		}
	})
}

func TestLoginConcurrentAtCapMinusOne(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepo()
	svc := newAuthServiceForTests(users, nil)
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}
	for range testMaxDevices - 1 {
		if _, err := svc.Login(ctx, "a@b.com", "Abc123!@"); err != nil {
			t.Fatalf("warm-up login: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Login(ctx, "a@b.com", "Abc123!@")
		}()
	}
	wg.Wait()

	var ok, capped int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDeviceLimitExceeded):
			capped++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || capped != 1 {
		t.Fatalf("expected one success and one cap rejection, got ok=%d capped=%d", ok, capped)
	}
	stored, _ := users.FindByEmail(ctx, "a@b.com")
	if len(stored.Tokens) != testMaxDevices {
		t.Fatalf("expected %d tokens, got %d", testMaxDevices, len(stored.Tokens))
	}
}

func TestLogoutRemovesOnlyTargetToken(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepo()
	svc := newAuthServiceForTests(users, nil)
	profile, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	var tokens []string
	for range testMaxDevices {
		res, err := svc.Login(ctx, "a@b.com", "Abc123!@")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		tokens = append(tokens, res.Token)
	}

	if err := svc.Logout(ctx, profile.ID, tokens[1]); err != nil {
		t.Fatalf("logout: %v", err)
	}
	stored, _ := users.FindByID(ctx, profile.ID)
	want := []string{tokens[0], tokens[2]}
	if !slices.Equal(stored.Tokens, want) {
		t.Fatalf("expected %v, got %v", want, stored.Tokens)
	}

	if err := svc.Logout(ctx, profile.ID, tokens[1]); !errors.Is(err, ErrSessionAlreadyInvalid) {
		t.Fatalf("expected ErrSessionAlreadyInvalid, got %v", err)
	}
	if err := svc.Logout(ctx, uuid.New(), tokens[0]); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// a freed slot can be reused
	if _, err := svc.Login(ctx, "a@b.com", "Abc123!@"); err != nil {
		t.Fatalf("login after logout: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepo()
	svc := newAuthServiceForTests(users, nil)
	profile, _ := svc.Register(ctx, validRegistration())
	res, err := svc.Login(ctx, "a@b.com", "Abc123!@")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.Authenticate(ctx, res.Token)
	if err != nil || claims.UserID != profile.ID {
		t.Fatalf("expected live session, got %v %+v", err, claims)
	}

	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	_ = svc.Logout(ctx, profile.ID, res.Token)
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionAlreadyInvalid) {
		t.Fatalf("expected ErrSessionAlreadyInvalid, got %v", err)
	}

	_ = svc.DeleteAccount(ctx, profile.ID)
	if _, err := svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetProfileOmitsCredentials(t *testing.T) {
	user := hashedUser("Abc123!@")
	user.Tokens = []string{"t1"}
	repo := &fakeUserRepo{findByIDResult: user}
	svc := newAuthServiceForTests(repo, nil)

	profile, err := svc.GetProfile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.ID != user.ID || profile.Email != user.Email {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	_, err = newAuthServiceForTests(&fakeUserRepo{}, nil).GetProfile(context.Background(), uuid.New())
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	ptr := func(s string) *string { return &s }

	t.Run("empty update", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{}, nil)
		if err := svc.UpdateProfile(ctx, id, domain.ProfileUpdate{}); !errors.Is(err, ErrNoFieldsProvided) {
			t.Fatalf("expected ErrNoFieldsProvided, got %v", err)
		}
	})

	t.Run("invalid phone", func(t *testing.T) {
		repo := &fakeUserRepo{}
		svc := newAuthServiceForTests(repo, nil)
		err := svc.UpdateProfile(ctx, id, domain.ProfileUpdate{Username: ptr("bob"), Phone: ptr("12345")})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "phone" {
			t.Fatalf("expected phone validation error, got %v", err)
		}
	})

	t.Run("partial update hashes password", func(t *testing.T) {
		repo := &fakeUserRepo{}
		svc := newAuthServiceForTests(repo, nil)
		err := svc.UpdateProfile(ctx, id, domain.ProfileUpdate{Email: ptr("New@B.com"), Password: ptr("Newpass1!")})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got := repo.updateFieldsInput
		if got.Username != nil || got.Phone != nil {
			t.Fatalf("untouched fields must stay nil: %+v", got)
		}
		if got.Email == nil || *got.Email != "new@b.com" {
			t.Fatalf("email should be normalized, got %v", got.Email)
		}
		if got.PasswordHash == nil || *got.PasswordHash != "hashed:Newpass1!" {
			t.Fatalf("password should be hashed, got %v", got.PasswordHash)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{updateFieldsErr: ports.ErrNotFound}, nil)
		if err := svc.UpdateProfile(ctx, id, domain.ProfileUpdate{Username: ptr("bob")}); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{updateFieldsErr: ports.ErrDuplicateEmail}, nil)
		if err := svc.UpdateProfile(ctx, id, domain.ProfileUpdate{Email: ptr("c@d.com")}); !errors.Is(err, ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	id := uuid.New()
	repo := &fakeUserRepo{}
	if err := newAuthServiceForTests(repo, nil).DeleteAccount(context.Background(), id); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.deleteInput != id {
		t.Fatal("expected delete to target the caller")
	}

	missing := &fakeUserRepo{deleteErr: ports.ErrNotFound}
	if err := newAuthServiceForTests(missing, nil).DeleteAccount(context.Background(), id); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without verifier", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{}, nil)
		if _, err := svc.LoginWithGoogle(ctx, "id-token"); !errors.Is(err, ErrDelegatedLoginDisabled) {
			t.Fatalf("expected ErrDelegatedLoginDisabled, got %v", err)
		}
	})

	t.Run("rejected id token", func(t *testing.T) {
		svc := newAuthServiceForTests(&fakeUserRepo{}, &fakeVerifier{err: errBoom})
		if _, err := svc.LoginWithGoogle(ctx, "id-token"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("upserts and issues session", func(t *testing.T) {
		user := hashedUser("unused")
		user.PasswordHash = nil
		repo := &fakeUserRepo{upsertResult: user}
		verifier := &fakeVerifier{identity: &DelegatedIdentity{
			Provider:  domain.ProviderGoogle,
			AccountID: "sub-123",
			Email:     "A@B.com",
		}}
		svc := newAuthServiceForTests(repo, verifier)

		result, err := svc.LoginWithGoogle(ctx, "id-token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(repo.upsertCalls) != 1 {
			t.Fatalf("expected one upsert, got %d", len(repo.upsertCalls))
		}
		call := repo.upsertCalls[0]
		if call.email != "a@b.com" || call.username != "a" || call.accountID != "sub-123" {
			t.Fatalf("unexpected upsert: %+v", call)
		}
		claims, err := svc.codec.VerifySession(result.Token)
		if err != nil || claims.Provider != domain.ProviderGoogle {
			t.Fatalf("expected google session claims, got %v %+v", err, claims)
		}
	})

	t.Run("subject to device cap", func(t *testing.T) {
		user := hashedUser("unused")
		for i := range testMaxDevices {
			user.Tokens = append(user.Tokens, fmt.Sprintf("t%d", i))
		}
		repo := &fakeUserRepo{upsertResult: user}
		verifier := &fakeVerifier{identity: &DelegatedIdentity{Provider: domain.ProviderGoogle, AccountID: "s", Email: "a@b.com", Name: "Al"}}
		svc := newAuthServiceForTests(repo, verifier)

		if _, err := svc.LoginWithGoogle(ctx, "id-token"); !errors.Is(err, ErrDeviceLimitExceeded) {
			t.Fatalf("expected ErrDeviceLimitExceeded, got %v", err)
		}
	})
}
