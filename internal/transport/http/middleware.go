package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/accountd/internal/service"
	"github.com/njprem/accountd/internal/util"
)

const (
	contextClaimsKey = "auth.claims"
	contextTokenKey  = "auth.token"
)

// SessionAuthenticator checks that a bearer token is a live session.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*util.SessionClaims, error)
}

// RequireToken decodes the bearer token and attaches its claims without
// consulting the store, so handlers can report a revoked session themselves.
func RequireToken(codec *util.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error("missing or invalid authorization header"))
			}
			claims, err := codec.VerifySession(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error("Invalid token"))
			}
			c.Set(contextClaimsKey, claims)
			c.Set(contextTokenKey, token)
			return next(c)
		}
	}
}

// RequireSession admits only tokens that are still in the user's session list.
func RequireSession(auth SessionAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, util.Error("missing or invalid authorization header"))
			}
			claims, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrSessionAlreadyInvalid):
					return c.JSON(http.StatusUnauthorized, util.Error("Session is no longer valid, please login again"))
				case errors.Is(err, service.ErrUserNotFound):
					return c.JSON(http.StatusNotFound, util.Error("User Not Found"))
				case errors.Is(err, service.ErrInvalidToken):
					return c.JSON(http.StatusUnauthorized, util.Error("Invalid token"))
				default:
					return c.JSON(http.StatusInternalServerError, util.Error("unable to verify session"))
				}
			}
			c.Set(contextClaimsKey, claims)
			c.Set(contextTokenKey, token)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func CurrentClaims(c echo.Context) (*util.SessionClaims, bool) {
	claims, ok := c.Get(contextClaimsKey).(*util.SessionClaims)
	return claims, ok && claims != nil
}

func CurrentToken(c echo.Context) string {
	token, _ := c.Get(contextTokenKey).(string)
	return token
}
