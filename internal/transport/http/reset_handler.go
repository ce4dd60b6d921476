package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/accountd/internal/metrics"
	"github.com/njprem/accountd/internal/service"
	"github.com/njprem/accountd/internal/util"
)

type ResetHandler struct {
	resets  *service.ResetService
	metrics *metrics.Metrics
	errs    errorResponder
}

func NewResetHandler(resets *service.ResetService, m *metrics.Metrics, logger *slog.Logger) *ResetHandler {
	return &ResetHandler{resets: resets, metrics: m, errs: errorResponder{logger: logger}}
}

func RegisterReset(e *echo.Echo, h *ResetHandler) {
	g := e.Group("/api/user")
	g.POST("/resetpassword", h.request)
	g.PATCH("/updatepassword", h.redeem)
}

func (h *ResetHandler) request(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := h.resets.RequestReset(c.Request().Context(), req.Email); err != nil {
		return h.fail(c, "request_reset", err)
	}
	h.metrics.Observe("request_reset", "ok")
	return c.JSON(http.StatusOK, util.Success("Reset link sent, check your email"))
}

// redeem takes the reset token from the emailed link's query string, or from
// a bearer header for clients that move it there.
func (h *ResetHandler) redeem(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		token, _ = bearerToken(c)
	}
	if token == "" {
		return c.JSON(http.StatusUnauthorized, util.Error("missing reset token"))
	}
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := h.resets.RedeemReset(c.Request().Context(), token, req.NewPassword); err != nil {
		return h.fail(c, "redeem_reset", err)
	}
	h.metrics.Observe("redeem_reset", "ok")
	return c.JSON(http.StatusCreated, util.Success("Successfully Changed"))
}

func (h *ResetHandler) fail(c echo.Context, op string, err error) error {
	outcome, writeErr := h.errs.respond(c, op, err)
	h.metrics.Observe(op, outcome)
	return writeErr
}
