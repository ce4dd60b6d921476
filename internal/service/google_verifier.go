package service

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"

	"github.com/njprem/accountd/internal/domain"
)

var (
	errUnverifiedEmail = errors.New("google account email is not verified")
	errMissingEmail    = errors.New("google token carries no email")
)

// GoogleVerifier checks Google ID tokens against a fixed OAuth client audience.
type GoogleVerifier struct {
	audience string
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(audience string) *GoogleVerifier {
	return &GoogleVerifier{audience: audience, validate: idtoken.Validate}
}

// Verify accepts only tokens whose email Google marks as verified, since the
// identity is linked to any existing account with that email.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*DelegatedIdentity, error) {
	payload, err := v.validate(ctx, idToken, v.audience)
	if err != nil {
		return nil, err
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errMissingEmail
	}
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return nil, errUnverifiedEmail
	}
	name, _ := payload.Claims["name"].(string)
	return &DelegatedIdentity{
		Provider:  domain.ProviderGoogle,
		AccountID: payload.Subject,
		Email:     email,
		Name:      name,
	}, nil
}
