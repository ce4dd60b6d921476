package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/metrics"
	"github.com/njprem/accountd/internal/service"
	"github.com/njprem/accountd/internal/util"
)

type AuthHandler struct {
	auth    *service.AuthService
	metrics *metrics.Metrics
	errs    errorResponder
}

func NewAuthHandler(auth *service.AuthService, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		metrics: m,
		errs:    errorResponder{logger: logger, maxDevices: auth.MaxDevices()},
	}
}

// RegisterAuth mounts the account routes. Logout only decodes its token so a
// second logout with the same token reports the session as already invalid.
func RegisterAuth(e *echo.Echo, h *AuthHandler, codec *util.TokenCodec) {
	g := e.Group("/api/user")
	g.POST("/register", h.register)
	g.POST("/login", h.login)

	session := RequireSession(h.auth)
	g.GET("/data", h.profile, session)
	g.PATCH("/update", h.update, session)
	g.DELETE("/delete", h.delete, session)
	g.DELETE("/logout", h.logout, RequireToken(codec))

	e.POST("/auth/google", h.googleLogin)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	_, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, "register", err)
	}
	h.metrics.Observe("register", "ok")
	return c.JSON(http.StatusCreated, util.Success("Inserted Successfully"))
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, "login", err)
	}
	h.metrics.Observe("login", "ok")
	return c.JSON(http.StatusCreated, LoginResponse{
		Status:   1,
		Success:  "Logged Successfully",
		Token:    result.Token,
		Provider: domain.ProviderEmail,
	})
}

func (h *AuthHandler) googleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil || req.IDToken == "" {
		return c.JSON(http.StatusBadRequest, util.Error("id_token is required"))
	}
	result, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return h.fail(c, "google_login", err)
	}
	h.metrics.Observe("google_login", "ok")
	return c.JSON(http.StatusCreated, LoginResponse{
		Status:   1,
		Success:  "Logged Successfully",
		Token:    result.Token,
		Provider: domain.ProviderGoogle,
	})
}

func (h *AuthHandler) profile(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	profile, err := h.auth.GetProfile(c.Request().Context(), claims.UserID)
	if err != nil {
		return h.fail(c, "get_profile", err)
	}
	return c.JSON(http.StatusOK, ProfileResponse{Status: 1, Result: profile})
}

func (h *AuthHandler) update(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := h.auth.UpdateProfile(c.Request().Context(), claims.UserID, req.toDomain()); err != nil {
		return h.fail(c, "update_profile", err)
	}
	h.metrics.Observe("update_profile", "ok")
	return c.JSON(http.StatusCreated, util.Success("Successfully Changed"))
}

func (h *AuthHandler) logout(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	if err := h.auth.Logout(c.Request().Context(), claims.UserID, CurrentToken(c)); err != nil {
		return h.fail(c, "logout", err)
	}
	h.metrics.Observe("logout", "ok")
	return c.JSON(http.StatusOK, util.Success("User Logged Out"))
}

func (h *AuthHandler) delete(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	if err := h.auth.DeleteAccount(c.Request().Context(), claims.UserID); err != nil {
		return h.fail(c, "delete_account", err)
	}
	h.metrics.Observe("delete_account", "ok")
	return c.JSON(http.StatusOK, util.Success("Successfully Deleted"))
}

func (h *AuthHandler) fail(c echo.Context, op string, err error) error {
	outcome, writeErr := h.errs.respond(c, op, err)
	h.metrics.Observe(op, outcome)
	return writeErr
}
