package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/njprem/accountd/internal/logging"
	"github.com/njprem/accountd/internal/service"
	"github.com/njprem/accountd/internal/util"
)

type errorMapping struct {
	target  error
	status  int
	outcome string
	message func(err error) string
}

func fixed(msg string) func(error) string {
	return func(error) string { return msg }
}

func ownMessage(err error) string {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

var errorMappings = []errorMapping{
	{service.ErrValidation, http.StatusBadRequest, "validation", ownMessage},
	{service.ErrDuplicateEmail, http.StatusBadRequest, "duplicate_email", fixed("Email already exists")},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", fixed("Invalid credentials")},
	{service.ErrDeviceLimitExceeded, http.StatusForbidden, "device_limit", nil},
	{service.ErrUserNotFound, http.StatusNotFound, "user_not_found", fixed("User Not Found")},
	{service.ErrSessionAlreadyInvalid, http.StatusBadRequest, "session_invalid", fixed("You are logged out by this token, please login again")},
	{service.ErrNoFieldsProvided, http.StatusNotFound, "no_fields", fixed("Not Found Data")},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", fixed("Invalid token")},
	{service.ErrInvalidResetLink, http.StatusBadRequest, "invalid_reset_link", fixed("Invalid reset link")},
	{service.ErrExpiredLink, http.StatusBadRequest, "expired_link", fixed("Expire Link")},
	{service.ErrDelegatedLoginDisabled, http.StatusNotFound, "delegated_disabled", fixed("Google login is not enabled")},
	{service.ErrEmailDelivery, http.StatusBadGateway, "email_delivery", fixed("Unable to send reset email")},
}

type errorResponder struct {
	logger     *slog.Logger
	maxDevices int
}

// respond writes the envelope for a failed operation and returns the outcome
// label used for metrics.
func (r errorResponder) respond(c echo.Context, op string, err error) (string, error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := ""
		if m.message != nil {
			msg = m.message(err)
		} else {
			msg = fmt.Sprintf("You do not have the authority to own more than %d devices", r.maxDevices)
		}
		if m.status >= http.StatusInternalServerError {
			logging.LogError(r.logger, op+" failed", err, "route", c.Path())
		}
		return m.outcome, c.JSON(m.status, util.Error(msg))
	}

	logging.LogError(r.logger, op+" failed", err, "route", c.Path())
	outcome := "internal"
	if errors.Is(err, service.ErrStore) {
		outcome = "store"
	}
	return outcome, c.JSON(http.StatusInternalServerError, util.Error("Something went wrong, please try again later"))
}
