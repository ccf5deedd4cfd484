package models

import "time"

// Session is a persisted login. Only the SHA-256 digest of the bearer
// token is stored.
type Session struct {
	ID           string    `json:"id"`
	FirmUserID   string    `json:"firm_user_id"`
	TokenHash    string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// Expired reports whether now is past the session's expiry. A session is
// still usable at the instant it expires.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// FirmSession describes the identity behind a valid session.
type FirmSession struct {
	User      PublicUser `json:"user"`
	Firm      PublicFirm `json:"firm"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
