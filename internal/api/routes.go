package api

import (
	"github.com/labstack/echo/v4"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/metrics"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// RegisterRoutes sets up all routes. limiter guards the login endpoint.
func RegisterRoutes(e *echo.Echo, h *Handlers, limiter *auth.RateLimiter) {
	// Public
	e.GET("/health", h.health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	firm := e.Group("/firm")
	firm.POST("/register", h.registerFirm)

	authGroup := firm.Group("/auth")
	authGroup.POST("/login", h.login, limiter.Middleware())
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/session", h.session)

	requireAuth := auth.RequireAuth(h.auth, h.cookies)
	requireCEO := auth.RequireRole(h.auth, models.RoleCEO)

	// Firm user management (listing: any firm user, creation: ceo)
	users := firm.Group("/users", requireAuth)
	users.GET("", h.listUsers)
	users.POST("", h.createUser, requireCEO)

	// Audit trail (ceo only)
	audit := firm.Group("/audit", requireAuth, requireCEO)
	audit.GET("", h.listAudit)
}
