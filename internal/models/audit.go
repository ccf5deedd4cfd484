package models

import "time"

// AuditLog is an append-only record of an authentication event.
type AuditLog struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	FirmID     string    `json:"firm_id,omitempty"`
	FirmUserID string    `json:"firm_user_id,omitempty"`
	Action     string    `json:"action"`
	Target     string    `json:"target,omitempty"`
	Details    string    `json:"details,omitempty"` // JSON string
	IPAddress  string    `json:"ip_address,omitempty"`
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	FirmID string
	Action string
	Limit  int
	Offset int
}

// Audit actions
const (
	ActionFirmRegister   = "firm.register"
	ActionFirmActivate   = "firm.activate"
	ActionFirmDeactivate = "firm.deactivate"
	ActionLogin          = "firm.login"
	ActionLoginFailed    = "firm.login_failed"
	ActionLogout         = "firm.logout"
	ActionUserCreate     = "firm_user.create"
)
