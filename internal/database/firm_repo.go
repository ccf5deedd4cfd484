package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

const firmColumns = `f.id, f.company_name, f.company_description, f.company_website, f.company_address,
	f.company_phone, f.company_email, f.tax_id, f.county, f.city, f.specialties,
	f.is_verified, f.is_active, f.created_at, f.updated_at`

// FirmRepo handles firm database operations
type FirmRepo struct {
	db *DB
}

// NewFirmRepo creates a new firm repository
func NewFirmRepo(db *DB) *FirmRepo {
	return &FirmRepo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// firmRow collects the nullable columns of firmColumns during a scan.
type firmRow struct {
	firm                                 models.Firm
	description, website, address, phone sql.NullString
	specialties                          string
}

func (r *firmRow) dest() []any {
	f := &r.firm
	return []any{
		&f.ID, &f.CompanyName, &r.description, &r.website, &r.address,
		&r.phone, &f.CompanyEmail, &f.TaxID, &f.County, &f.City, &r.specialties,
		&f.IsVerified, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	}
}

func (r *firmRow) finish() (*models.Firm, error) {
	f := r.firm
	f.CompanyDescription = r.description.String
	f.CompanyWebsite = r.website.String
	f.CompanyAddress = r.address.String
	f.CompanyPhone = r.phone.String
	if err := json.Unmarshal([]byte(r.specialties), &f.Specialties); err != nil {
		return nil, fmt.Errorf("decode specialties for %s: %w", f.ID, err)
	}
	return &f, nil
}

func scanFirm(row scanner) (*models.Firm, error) {
	var r firmRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.finish()
}

// CreateWithCEO inserts a firm and its founding user in one transaction.
// A tax id or email collision surfaces as a *DuplicateError.
func (r *FirmRepo) CreateWithCEO(ctx context.Context, firm *models.Firm, ceo *models.FirmUser) error {
	specialties, err := json.Marshal(firm.Specialties)
	if err != nil {
		return fmt.Errorf("firms: encode specialties: %w", err)
	}

	err = r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.db.Rebind(`
			INSERT INTO firms (id, company_name, company_description, company_website, company_address,
				company_phone, company_email, tax_id, county, city, specialties,
				is_verified, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), firm.ID, firm.CompanyName, nullString(firm.CompanyDescription), nullString(firm.CompanyWebsite),
			nullString(firm.CompanyAddress), nullString(firm.CompanyPhone), firm.CompanyEmail, firm.TaxID,
			firm.County, firm.City, string(specialties), firm.IsVerified, firm.IsActive, firm.CreatedAt, firm.UpdatedAt)
		if err != nil {
			return err
		}
		return insertFirmUser(ctx, tx, r.db, ceo)
	})
	if err != nil {
		return fmt.Errorf("firms: create %s: %w", firm.TaxID, mapUnique(err, "tax_id", "email"))
	}
	return nil
}

// TaxIDExists reports whether a firm with the tax id is registered.
func (r *FirmRepo) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM firms WHERE tax_id = ?"), taxID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("firms: tax id lookup: %w", err)
	}
	return count > 0, nil
}

// GetByID returns the firm or nil when it does not exist.
func (r *FirmRepo) GetByID(ctx context.Context, id string) (*models.Firm, error) {
	return r.getOne(ctx, "f.id = ?", id)
}

// GetByTaxID returns the firm or nil when it does not exist.
func (r *FirmRepo) GetByTaxID(ctx context.Context, taxID string) (*models.Firm, error) {
	return r.getOne(ctx, "f.tax_id = ?", taxID)
}

func (r *FirmRepo) getOne(ctx context.Context, where string, arg any) (*models.Firm, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+firmColumns+" FROM firms f WHERE "+where), arg)
	f, err := scanFirm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firms: get: %w", err)
	}
	return f, nil
}

// List returns all firms, newest first.
func (r *FirmRepo) List(ctx context.Context) ([]*models.Firm, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+firmColumns+" FROM firms f ORDER BY f.created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("firms: list: %w", err)
	}
	defer rows.Close()

	var firms []*models.Firm
	for rows.Next() {
		f, err := scanFirm(rows)
		if err != nil {
			return nil, fmt.Errorf("firms: list: %w", err)
		}
		firms = append(firms, f)
	}
	return firms, rows.Err()
}

// SetStatus flips the back-office flags of a firm.
func (r *FirmRepo) SetStatus(ctx context.Context, id string, active, verified bool, at time.Time) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE firms SET is_active = ?, is_verified = ?, updated_at = ? WHERE id = ?
	`), active, verified, at, id)
	if err != nil {
		return fmt.Errorf("firms: set status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("firms: set status: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
