package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// ContextKeySession stores the *models.FirmSession of an authenticated request.
const ContextKeySession = "firm_session"

// RequireAuth middleware resolves the session cookie and rejects requests
// without a valid session, clearing the stale cookie. A failed session
// check is logged and answered like a missing session.
func RequireAuth(authSvc *Service, cookies Cookies) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := authSvc.CurrentSession(c.Request().Context(), TokenFromRequest(c))
			if err != nil {
				authSvc.log.Error("session check failed", zap.String("path", c.Path()), zap.Error(err))
			}
			if session == nil {
				c.SetCookie(cookies.Cleared())
				return c.JSON(http.StatusUnauthorized, errorBody(ErrNotAuthenticated))
			}

			c.Set(ContextKeySession, session)
			return next(c)
		}
	}
}

// RequireRole middleware checks the session's role. Must be used after
// RequireAuth.
func RequireRole(authSvc *Service, role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := authSvc.RequireRole(SessionFromContext(c), role); err != nil {
				status := http.StatusForbidden
				if err == ErrNotAuthenticated {
					status = http.StatusUnauthorized
				}
				return c.JSON(status, errorBody(err))
			}
			return next(c)
		}
	}
}

// SessionFromContext retrieves the current session from the context
func SessionFromContext(c echo.Context) *models.FirmSession {
	session, ok := c.Get(ContextKeySession).(*models.FirmSession)
	if !ok {
		return nil
	}
	return session
}

func errorBody(err error) map[string]any {
	return map[string]any{
		"success": false,
		"error":   err.Error(),
	}
}
