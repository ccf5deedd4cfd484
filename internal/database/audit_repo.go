package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// AuditRepo handles audit log database operations
type AuditRepo struct {
	db *DB
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO firm_audit_logs (id, timestamp, firm_id, firm_user_id, action, target, details, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), entry.ID, entry.Timestamp, nullString(entry.FirmID), nullString(entry.FirmUserID),
		entry.Action, nullString(entry.Target), nullString(entry.Details), nullString(entry.IPAddress))
	if err != nil {
		return fmt.Errorf("audit: create: %w", err)
	}
	return nil
}

// Log is a convenience method to create an audit log entry with current timestamp
func (r *AuditRepo) Log(ctx context.Context, firmID, firmUserID, action, target string, details any, ipAddress string) error {
	var detailsJSON string
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(b)
		}
	}

	return r.Create(ctx, &models.AuditLog{
		FirmID:     firmID,
		FirmUserID: firmUserID,
		Action:     action,
		Target:     target,
		Details:    detailsJSON,
		IPAddress:  ipAddress,
	})
}

// List retrieves audit logs with pagination and optional filters, newest first.
func (r *AuditRepo) List(ctx context.Context, filter models.AuditFilter) ([]*models.AuditLog, int, error) {
	baseQuery := "FROM firm_audit_logs WHERE 1=1"
	args := []any{}

	if filter.FirmID != "" {
		baseQuery += " AND firm_id = ?"
		args = append(args, filter.FirmID)
	}
	if filter.Action != "" {
		baseQuery += " AND action = ?"
		args = append(args, filter.Action)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) "+baseQuery), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count: %w", err)
	}

	query := "SELECT id, timestamp, firm_id, firm_user_id, action, target, details, ip_address " + baseQuery
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		var firmID, firmUserID, target, details, ipAddress sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.Timestamp, &firmID, &firmUserID,
			&entry.Action, &target, &details, &ipAddress,
		); err != nil {
			return nil, 0, fmt.Errorf("audit: list: %w", err)
		}
		entry.FirmID = firmID.String
		entry.FirmUserID = firmUserID.String
		entry.Target = target.String
		entry.Details = details.String
		entry.IPAddress = ipAddress.String
		logs = append(logs, entry)
	}
	return logs, total, rows.Err()
}
