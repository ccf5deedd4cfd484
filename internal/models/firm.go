package models

import "time"

// Firm is a manufacturer account on the marketplace. New firms start
// unverified and inactive until the back office approves them.
type Firm struct {
	ID                 string    `json:"id"`
	CompanyName        string    `json:"company_name"`
	CompanyDescription string    `json:"company_description,omitempty"`
	CompanyWebsite     string    `json:"company_website,omitempty"`
	CompanyAddress     string    `json:"company_address,omitempty"`
	CompanyPhone       string    `json:"company_phone,omitempty"`
	CompanyEmail       string    `json:"company_email"`
	TaxID              string    `json:"tax_id"`
	County             string    `json:"county"`
	City               string    `json:"city"`
	Specialties        []string  `json:"specialties"`
	IsVerified         bool      `json:"is_verified"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PublicFirm is the subset of firm fields handed to an authenticated client.
type PublicFirm struct {
	ID          string   `json:"id"`
	CompanyName string   `json:"company_name"`
	Specialties []string `json:"specialties"`
	IsVerified  bool     `json:"is_verified"`
}

// Public returns the whitelisted view of the firm.
func (f *Firm) Public() PublicFirm {
	specialties := f.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return PublicFirm{
		ID:          f.ID,
		CompanyName: f.CompanyName,
		Specialties: specialties,
		IsVerified:  f.IsVerified,
	}
}

// FirmRegistration is the payload of a self-service firm signup.
type FirmRegistration struct {
	Firm FirmDetails `json:"firm"`
	CEO  NewFirmUser `json:"ceo"`
}

// FirmDetails holds the firm half of a registration.
type FirmDetails struct {
	CompanyName        string   `json:"company_name"`
	CompanyDescription string   `json:"company_description"`
	CompanyWebsite     string   `json:"company_website"`
	CompanyAddress     string   `json:"company_address"`
	CompanyPhone       string   `json:"company_phone"`
	CompanyEmail       string   `json:"company_email"`
	TaxID              string   `json:"tax_id"`
	County             string   `json:"county"`
	City               string   `json:"city"`
	Specialties        []string `json:"specialties"`
}
