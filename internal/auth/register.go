package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/metrics"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// RegisterFirm creates an inactive, unverified firm together with its ceo
// account. The firm cannot log in until the back office activates it.
func (s *Service) RegisterFirm(ctx context.Context, reg models.FirmRegistration, client ClientInfo) (*models.Firm, error) {
	details := normalizeFirm(reg.Firm)
	ceoInput := reg.CEO
	ceoInput.Email = normalizeEmail(ceoInput.Email)
	ceoInput.Role = models.RoleCEO

	if err := s.validateFirm(details); err != nil {
		metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}
	if err := s.validateUser(ceoInput); err != nil {
		metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	taken, err := s.firms.TaxIDExists(ctx, details.TaxID)
	if err != nil {
		return nil, s.registrationError("tax id lookup failed", err)
	}
	if taken {
		metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrTaxIDTaken
	}
	taken, err = s.users.EmailExists(ctx, ceoInput.Email)
	if err != nil {
		return nil, s.registrationError("email lookup failed", err)
	}
	if taken {
		metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(ceoInput.Password)
	if err != nil {
		return nil, s.registrationError("password hash failed", err)
	}

	now := s.now()
	firm := &models.Firm{
		ID:                 uuid.NewString(),
		CompanyName:        details.CompanyName,
		CompanyDescription: details.CompanyDescription,
		CompanyWebsite:     details.CompanyWebsite,
		CompanyAddress:     details.CompanyAddress,
		CompanyPhone:       details.CompanyPhone,
		CompanyEmail:       details.CompanyEmail,
		TaxID:              details.TaxID,
		County:             details.County,
		City:               details.City,
		Specialties:        details.Specialties,
		IsVerified:         false,
		IsActive:           false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	ceo := &models.FirmUser{
		ID:           uuid.NewString(),
		FirmID:       firm.ID,
		Email:        ceoInput.Email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(ceoInput.FirstName),
		LastName:     strings.TrimSpace(ceoInput.LastName),
		Phone:        strings.TrimSpace(ceoInput.Phone),
		Role:         models.RoleCEO,
		IsActive:     true,
		CreatedAt:    now,
	}

	if err := s.firms.CreateWithCEO(ctx, firm, ceo); err != nil {
		var dup *database.DuplicateError
		if errors.As(err, &dup) {
			metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeRejected).Inc()
			if dup.Field == "tax_id" {
				return nil, ErrTaxIDTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, s.registrationError("firm insert failed", err)
	}

	if err := s.notifier.FirmRegistered(ctx, firm, ceo); err != nil {
		s.log.Warn("registration notification failed", zap.String("firm_id", firm.ID), zap.Error(err))
	}
	s.record(ctx, firm.ID, ceo.ID, models.ActionFirmRegister, firm.TaxID,
		map[string]any{"company_name": firm.CompanyName, "specialties": firm.Specialties}, client.IPAddress)
	metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("firm registered", zap.String("firm_id", firm.ID), zap.String("tax_id", firm.TaxID))

	return firm, nil
}

func (s *Service) registrationError(msg string, err error) error {
	s.log.Error(msg, zap.Error(err))
	metrics.FirmRegistrations.WithLabelValues(metrics.OutcomeError).Inc()
	return ErrServerError
}

// RegisterFirmUser adds a user to firmID. It never issues a session. The
// role defaults to employee; createdBy may be empty.
func (s *Service) RegisterFirmUser(ctx context.Context, firmID string, input models.NewFirmUser, createdBy string, client ClientInfo) (*models.FirmUser, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Role == "" {
		input.Role = models.RoleEmployee
	}
	if err := s.validateUser(input); err != nil {
		return nil, err
	}

	taken, err := s.users.EmailExists(ctx, input.Email)
	if err != nil {
		s.log.Error("email lookup failed", zap.Error(err))
		return nil, ErrServerError
	}
	if taken {
		return nil, ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.Error("password hash failed", zap.Error(err))
		return nil, ErrServerError
	}

	user := &models.FirmUser{
		ID:           uuid.NewString(),
		FirmID:       firmID,
		Email:        input.Email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         input.Role,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if createdBy != "" {
		user.CreatedBy = &createdBy
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		s.log.Error("firm user insert failed", zap.String("firm_id", firmID), zap.Error(err))
		return nil, ErrServerError
	}

	s.record(ctx, firmID, createdBy, models.ActionUserCreate, user.Email, map[string]string{"role": string(user.Role)}, client.IPAddress)
	return user, nil
}

// ListFirmUsers returns the users of firmID.
func (s *Service) ListFirmUsers(ctx context.Context, firmID string) ([]*models.FirmUser, error) {
	users, err := s.users.ListByFirm(ctx, firmID)
	if err != nil {
		s.log.Error("firm user list failed", zap.String("firm_id", firmID), zap.Error(err))
		return nil, ErrServerError
	}
	return users, nil
}

func normalizeFirm(f models.FirmDetails) models.FirmDetails {
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.CompanyDescription = strings.TrimSpace(f.CompanyDescription)
	f.CompanyWebsite = strings.TrimSpace(f.CompanyWebsite)
	f.CompanyAddress = strings.TrimSpace(f.CompanyAddress)
	f.CompanyPhone = strings.TrimSpace(f.CompanyPhone)
	f.CompanyEmail = normalizeEmail(f.CompanyEmail)
	f.TaxID = strings.ToUpper(strings.TrimSpace(f.TaxID))
	f.County = strings.TrimSpace(f.County)
	f.City = strings.TrimSpace(f.City)

	specialties := make([]string, 0, len(f.Specialties))
	seen := make(map[string]bool, len(f.Specialties))
	for _, sp := range f.Specialties {
		sp = strings.TrimSpace(sp)
		if sp == "" || seen[sp] {
			continue
		}
		seen[sp] = true
		specialties = append(specialties, sp)
	}
	f.Specialties = specialties
	return f
}

func (s *Service) validateFirm(f models.FirmDetails) error {
	required := []struct{ name, value string }{
		{"company_name", f.CompanyName},
		{"company_email", f.CompanyEmail},
		{"tax_id", f.TaxID},
		{"county", f.County},
		{"city", f.City},
	}
	for _, r := range required {
		if r.value == "" {
			return invalid(fmt.Sprintf("field %s is required", r.name))
		}
	}
	if !validEmail(f.CompanyEmail) {
		return invalid("company_email is not a valid email address")
	}
	if len(f.Specialties) == 0 {
		return invalid("select at least one specialty")
	}
	return nil
}

func (s *Service) validateUser(u models.NewFirmUser) error {
	required := []struct{ name, value string }{
		{"first_name", strings.TrimSpace(u.FirstName)},
		{"last_name", strings.TrimSpace(u.LastName)},
		{"email", u.Email},
		{"password", u.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return invalid(fmt.Sprintf("field %s is required", r.name))
		}
	}
	if !validEmail(u.Email) {
		return invalid("email is not a valid email address")
	}
	if len([]rune(u.Password)) < s.minPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", s.minPasswordLength))
	}
	if len(u.Password) > maxPasswordBytes {
		return invalid(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if !u.Role.Valid() {
		return invalid("role must be ceo or employee")
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
