package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

func newTestAdmin(t *testing.T) (*admin, *bytes.Buffer, *database.DB) {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "admin.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	out := &bytes.Buffer{}
	return newAdmin(db, zap.NewNop(), out), out, db
}

func seedFirm(t *testing.T, db *database.DB) *models.Firm {
	t.Helper()
	now := time.Now().UTC()
	firm := &models.Firm{
		ID: "f1", CompanyName: "Acme SRL", CompanyEmail: "office@acme.ro", TaxID: "RO111",
		County: "Cluj", City: "Cluj-Napoca", Specialties: []string{"kitchen"}, CreatedAt: now, UpdatedAt: now,
	}
	ceo := &models.FirmUser{
		ID: "u1", FirmID: "f1", Email: "a@acme.ro", PasswordHash: "hash", FirstName: "Ana", LastName: "Pop",
		Role: models.RoleCEO, IsActive: true, CreatedAt: now,
	}
	if err := database.NewFirmRepo(db).CreateWithCEO(context.Background(), firm, ceo); err != nil {
		t.Fatalf("CreateWithCEO: %v", err)
	}
	return firm
}

func TestActivateAndDeactivate(t *testing.T) {
	a, out, db := newTestAdmin(t)
	seedFirm(t, db)
	ctx := context.Background()
	firms := database.NewFirmRepo(db)

	if err := a.run(ctx, []string{"list-firms", "-pending"}); err != nil {
		t.Fatalf("list-firms: %v", err)
	}
	if !strings.Contains(out.String(), "RO111") {
		t.Fatalf("pending firm not listed:\n%s", out)
	}

	if err := a.run(ctx, []string{"activate", "-tax-id", "ro111"}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	firm, _ := firms.GetByTaxID(ctx, "RO111")
	if !firm.IsActive || !firm.IsVerified {
		t.Fatalf("firm not activated: %+v", firm)
	}

	out.Reset()
	if err := a.run(ctx, []string{"list-firms", "-pending"}); err != nil {
		t.Fatalf("list-firms: %v", err)
	}
	if strings.Contains(out.String(), "RO111") {
		t.Fatalf("active firm listed as pending:\n%s", out)
	}

	if err := a.run(ctx, []string{"deactivate", "-tax-id", "RO111"}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	firm, _ = firms.GetByTaxID(ctx, "RO111")
	if firm.IsActive || !firm.IsVerified {
		t.Fatalf("unexpected status after deactivate: %+v", firm)
	}

	out.Reset()
	if err := a.run(ctx, []string{"audit", "-tax-id", "RO111"}); err != nil {
		t.Fatalf("audit: %v", err)
	}
	for _, want := range []string{models.ActionFirmActivate, models.ActionFirmDeactivate, "2 of 2 entries"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("audit output missing %q:\n%s", want, out)
		}
	}
}

func TestSweepSessions(t *testing.T) {
	a, out, db := newTestAdmin(t)
	seedFirm(t, db)
	ctx := context.Background()
	sessions := database.NewSessionRepo(db)
	now := time.Now().UTC()

	for i, expires := range []time.Time{now.Add(-time.Hour), now.Add(time.Hour)} {
		err := sessions.Create(ctx, &models.Session{
			ID: string(rune('a' + i)), FirmUserID: "u1", TokenHash: string(rune('x' + i)),
			CreatedAt: expires.Add(-8 * time.Hour), ExpiresAt: expires, LastAccessed: now,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := a.run(ctx, []string{"sweep-sessions"}); err != nil {
		t.Fatalf("sweep-sessions: %v", err)
	}
	if !strings.Contains(out.String(), "removed 1 expired sessions") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRunErrors(t *testing.T) {
	a, _, _ := newTestAdmin(t)
	ctx := context.Background()

	if err := a.run(ctx, nil); !errors.Is(err, errUsage) {
		t.Fatalf("no command: %v", err)
	}
	if err := a.run(ctx, []string{"explode"}); !errors.Is(err, errUsage) {
		t.Fatalf("unknown command: %v", err)
	}
	if err := a.run(ctx, []string{"activate"}); err == nil {
		t.Fatalf("activate without tax id must fail")
	}
	if err := a.run(ctx, []string{"activate", "-tax-id", "RO999"}); err == nil {
		t.Fatalf("activating an unknown firm must fail")
	}
}
