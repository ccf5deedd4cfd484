package models

import "time"

// Role is a firm user's access level. A ceo can do everything an
// employee can.
type Role string

const (
	RoleCEO      Role = "ceo"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCEO || r == RoleEmployee
}

// Covers reports whether a user holding r satisfies a requirement for
// required.
func (r Role) Covers(required Role) bool {
	if r == RoleCEO {
		return true
	}
	return r == required
}

// FirmUser is a login belonging to exactly one firm.
type FirmUser struct {
	ID           string     `json:"id"`
	FirmID       string     `json:"firm_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone,omitempty"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedBy    *string    `json:"created_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// PublicUser is the subset of user fields handed to an authenticated client.
type PublicUser struct {
	ID        string `json:"id"`
	FirmID    string `json:"firm_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// Public returns the whitelisted view of the user.
func (u *FirmUser) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirmID:    u.FirmID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
	}
}

// NewFirmUser is the input for creating a firm user.
type NewFirmUser struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      Role   `json:"role"`
}
