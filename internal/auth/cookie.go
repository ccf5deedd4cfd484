package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// SessionCookieName carries the bearer token.
	SessionCookieName = "firm_session"
	// SessionCookiePath scopes the cookie to the firm portal.
	SessionCookiePath = "/firm"
)

// Cookies builds the session cookie. Secure is on in production.
type Cookies struct {
	Secure bool
}

// Session returns the cookie that carries token until expiresAt.
func (c Cookies) Session(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     SessionCookiePath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Cleared returns a cookie that makes the browser drop the session cookie.
func (c Cookies) Cleared() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     SessionCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest extracts the session token from the request cookie.
func TokenFromRequest(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
