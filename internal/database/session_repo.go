package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// SessionRepo handles firm session database operations. Rows are keyed by
// the SHA-256 digest of the bearer token, never the token itself.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create persists a new session
func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO firm_sessions (id, firm_user_id, session_token_hash, created_at, expires_at, last_accessed, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), session.ID, session.FirmUserID, session.TokenHash, session.CreatedAt, session.ExpiresAt,
		session.LastAccessed, nullString(session.IPAddress), nullString(session.UserAgent))
	if err != nil {
		return fmt.Errorf("firm sessions: create: %w", err)
	}
	return nil
}

// GetByTokenHash returns the session or nil when none matches. Expiry is
// left to the caller so it can count the reap.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	session := &models.Session{}
	var ipAddress, userAgent sql.NullString

	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, firm_user_id, session_token_hash, created_at, expires_at, last_accessed, ip_address, user_agent
		FROM firm_sessions WHERE session_token_hash = ?
	`), tokenHash).Scan(
		&session.ID, &session.FirmUserID, &session.TokenHash, &session.CreatedAt,
		&session.ExpiresAt, &session.LastAccessed, &ipAddress, &userAgent,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firm sessions: get: %w", err)
	}

	session.IPAddress = ipAddress.String
	session.UserAgent = userAgent.String
	return session, nil
}

// Touch records a validation without moving the expiry.
func (r *SessionRepo) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE firm_sessions SET last_accessed = ? WHERE session_token_hash = ?"), at, tokenHash)
	if err != nil {
		return fmt.Errorf("firm sessions: touch: %w", err)
	}
	return nil
}

// DeleteByTokenHash removes the session if present. Deleting a missing
// session is not an error.
func (r *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM firm_sessions WHERE session_token_hash = ?"), tokenHash)
	if err != nil {
		return fmt.Errorf("firm sessions: delete: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM firm_sessions WHERE expires_at < ?"), now)
	if err != nil {
		return 0, fmt.Errorf("firm sessions: delete expired: %w", err)
	}
	return result.RowsAffected()
}
