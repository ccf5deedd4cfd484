package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

const firmUserColumns = `u.id, u.firm_id, u.email, u.password_hash, u.first_name, u.last_name, u.phone,
	u.role, u.is_active, u.created_by, u.created_at, u.last_login`

// FirmUserRepo handles firm user database operations
type FirmUserRepo struct {
	db *DB
}

// NewFirmUserRepo creates a new firm user repository
func NewFirmUserRepo(db *DB) *FirmUserRepo {
	return &FirmUserRepo{db: db}
}

type firmUserRow struct {
	user      models.FirmUser
	phone     sql.NullString
	createdBy sql.NullString
	lastLogin sql.NullTime
}

func (r *firmUserRow) dest() []any {
	u := &r.user
	return []any{
		&u.ID, &u.FirmID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &r.phone,
		&u.Role, &u.IsActive, &r.createdBy, &u.CreatedAt, &r.lastLogin,
	}
}

func (r *firmUserRow) finish() *models.FirmUser {
	u := r.user
	u.Phone = r.phone.String
	if r.createdBy.Valid {
		createdBy := r.createdBy.String
		u.CreatedBy = &createdBy
	}
	if r.lastLogin.Valid {
		lastLogin := r.lastLogin.Time
		u.LastLogin = &lastLogin
	}
	return &u
}

// Create inserts a firm user. An email collision surfaces as a *DuplicateError.
func (r *FirmUserRepo) Create(ctx context.Context, user *models.FirmUser) error {
	if err := insertFirmUser(ctx, r.db, r.db, user); err != nil {
		return fmt.Errorf("firm users: create: %w", mapUnique(err, "email"))
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertFirmUser(ctx context.Context, ex execer, db *DB, user *models.FirmUser) error {
	var createdBy sql.NullString
	if user.CreatedBy != nil {
		createdBy = sql.NullString{String: *user.CreatedBy, Valid: true}
	}
	_, err := ex.ExecContext(ctx, db.Rebind(`
		INSERT INTO firm_users (id, firm_id, email, password_hash, first_name, last_name, phone,
			role, is_active, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), user.ID, user.FirmID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		nullString(user.Phone), string(user.Role), user.IsActive, createdBy, user.CreatedAt)
	return err
}

// GetActiveByEmail returns the active user with the email together with its
// firm, or nils when there is none.
func (r *FirmUserRepo) GetActiveByEmail(ctx context.Context, email string) (*models.FirmUser, *models.Firm, error) {
	return r.getWithFirm(ctx, "u.email = ? AND u.is_active = ?", email, true)
}

// GetWithFirm returns the user and its firm regardless of their flags, or
// nils when the user does not exist.
func (r *FirmUserRepo) GetWithFirm(ctx context.Context, userID string) (*models.FirmUser, *models.Firm, error) {
	return r.getWithFirm(ctx, "u.id = ?", userID)
}

func (r *FirmUserRepo) getWithFirm(ctx context.Context, where string, args ...any) (*models.FirmUser, *models.Firm, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT `+firmUserColumns+`, `+firmColumns+`
		FROM firm_users u JOIN firms f ON f.id = u.firm_id
		WHERE `+where), args...)

	var ur firmUserRow
	var fr firmRow
	err := row.Scan(append(ur.dest(), fr.dest()...)...)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("firm users: get: %w", err)
	}
	firm, err := fr.finish()
	if err != nil {
		return nil, nil, fmt.Errorf("firm users: get: %w", err)
	}
	return ur.finish(), firm, nil
}

// EmailExists reports whether any firm user has the email.
func (r *FirmUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM firm_users WHERE email = ?"), email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("firm users: email lookup: %w", err)
	}
	return count > 0, nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *FirmUserRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE firm_users SET last_login = ? WHERE id = ?"), at, userID)
	if err != nil {
		return fmt.Errorf("firm users: update last login: %w", err)
	}
	return nil
}

// ListByFirm returns the firm's users ordered by creation.
func (r *FirmUserRepo) ListByFirm(ctx context.Context, firmID string) ([]*models.FirmUser, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT `+firmUserColumns+`
		FROM firm_users u WHERE u.firm_id = ? ORDER BY u.created_at, u.email
	`), firmID)
	if err != nil {
		return nil, fmt.Errorf("firm users: list: %w", err)
	}
	defer rows.Close()

	var users []*models.FirmUser
	for rows.Next() {
		var ur firmUserRow
		if err := rows.Scan(ur.dest()...); err != nil {
			return nil, fmt.Errorf("firm users: list: %w", err)
		}
		users = append(users, ur.finish())
	}
	return users, rows.Err()
}
