package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// login handles POST /firm/auth/login
func (h *Handlers) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrFirmInactive):
			return fail(c, http.StatusUnauthorized, err.Error())
		default:
			h.log.Error("login error", zap.Error(err))
			return fail(c, http.StatusInternalServerError, err.Error())
		}
	}

	c.SetCookie(h.cookies.Session(res.Token, res.Session.ExpiresAt))
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    res.Session.User,
		"firm":    res.Session.Firm,
	})
}

// logout handles POST /firm/auth/logout
func (h *Handlers) logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), auth.TokenFromRequest(c), clientInfo(c)); err != nil {
		h.log.Error("logout error", zap.Error(err))
		return fail(c, http.StatusInternalServerError, auth.ErrServerError.Error())
	}

	c.SetCookie(h.cookies.Cleared())
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

// session handles GET /firm/auth/session
func (h *Handlers) session(c echo.Context) error {
	session, err := h.auth.CurrentSession(c.Request().Context(), auth.TokenFromRequest(c))
	if err != nil {
		h.log.Error("session check error", zap.Error(err))
	}
	if session == nil {
		c.SetCookie(h.cookies.Cleared())
		return fail(c, http.StatusUnauthorized, auth.ErrNotAuthenticated.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"user":       session.User,
		"firm":       session.Firm,
		"expires_at": session.ExpiresAt,
	})
}
