// Package events announces firm lifecycle changes to the back office.
package events

import (
	"time"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// TypeFirmRegistered identifies a new firm awaiting review.
const TypeFirmRegistered = "firm.registered"

// FirmRegistered is the payload published when a firm signs up. It never
// carries credentials.
type FirmRegistered struct {
	Type        string    `json:"type"`
	FirmID      string    `json:"firm_id"`
	CompanyName string    `json:"company_name"`
	TaxID       string    `json:"tax_id"`
	County      string    `json:"county"`
	City        string    `json:"city"`
	Specialties []string  `json:"specialties"`
	CEOUserID   string    `json:"ceo_user_id"`
	CEOEmail    string    `json:"ceo_email"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewFirmRegistered builds the event for firm and its ceo.
func NewFirmRegistered(firm *models.Firm, ceo *models.FirmUser, at time.Time) FirmRegistered {
	return FirmRegistered{
		Type:        TypeFirmRegistered,
		FirmID:      firm.ID,
		CompanyName: firm.CompanyName,
		TaxID:       firm.TaxID,
		County:      firm.County,
		City:        firm.City,
		Specialties: firm.Specialties,
		CEOUserID:   ceo.ID,
		CEOEmail:    ceo.Email,
		OccurredAt:  at.UTC(),
	}
}
