package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// AuditLister reads the audit trail.
type AuditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, int, error)
}

// Handlers serves the firm portal API.
type Handlers struct {
	auth    *auth.Service
	audit   AuditLister
	cookies auth.Cookies
	log     *zap.Logger
}

// NewHandlers wires the handlers to their collaborators.
func NewHandlers(authSvc *auth.Service, audit AuditLister, cookies auth.Cookies, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{auth: authSvc, audit: audit, cookies: cookies, log: log}
}

// Health check
func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func clientInfo(c echo.Context) auth.ClientInfo {
	return auth.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
