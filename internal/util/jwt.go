package util

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	tokenKindSession = "session"
	tokenKindReset   = "reset"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("token signing secret is required")
)

type SessionClaims struct {
	UserID   uuid.UUID `json:"userId"`
	Provider string    `json:"provider,omitempty"`
	Kind     string    `json:"kind"`
	jwt.RegisteredClaims
}

type ResetClaims struct {
	Email   string    `json:"email"`
	ResetID ulid.ULID `json:"resetId"`
	Kind    string    `json:"kind"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 bearer tokens. It keeps no record of
// issued tokens; whether a token is still live is decided by the caller.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &TokenCodec{secret: []byte(secret), now: time.Now}, nil
}

// IssueSession signs session claims for userID. Each token gets its own jti, so
// two logins in the same second still produce distinct tokens. A ttl of zero
// issues a token without an expiry.
func (c *TokenCodec) IssueSession(userID uuid.UUID, provider string, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		UserID:           userID,
		Provider:         provider,
		Kind:             tokenKindSession,
		RegisteredClaims: c.registered(userID.String(), ttl),
	}
	return c.sign(claims)
}

func (c *TokenCodec) VerifySession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := c.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Kind != tokenKindSession || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) IssueReset(email string, resetID ulid.ULID, ttl time.Duration) (string, error) {
	claims := ResetClaims{
		Email:            email,
		ResetID:          resetID,
		Kind:             tokenKindReset,
		RegisteredClaims: c.registered(email, ttl),
	}
	return c.sign(claims)
}

func (c *TokenCodec) VerifyReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := c.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Kind != tokenKindReset || claims.Email == "" || claims.ResetID == (ulid.ULID{}) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	rc := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return rc
}

func (c *TokenCodec) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims) error {
	if strings.TrimSpace(tokenString) == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
