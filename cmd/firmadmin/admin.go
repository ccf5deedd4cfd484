package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

var errUsage = errors.New("usage: firmadmin <list-firms|activate|deactivate|audit|sweep-sessions> [flags]")

type admin struct {
	firms    *database.FirmRepo
	sessions *database.SessionRepo
	audit    *database.AuditRepo
	log      *zap.Logger
	out      io.Writer
	now      func() time.Time

	sessionsInRedis bool
}

func newAdmin(db *database.DB, log *zap.Logger, out io.Writer) *admin {
	return &admin{
		firms:    database.NewFirmRepo(db),
		sessions: database.NewSessionRepo(db),
		audit:    database.NewAuditRepo(db),
		log:      log,
		out:      out,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (a *admin) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list-firms":
		return a.listFirms(ctx, rest)
	case "activate":
		return a.setStatus(ctx, rest, true)
	case "deactivate":
		return a.setStatus(ctx, rest, false)
	case "audit":
		return a.listAudit(ctx, rest)
	case "sweep-sessions":
		return a.sweep(ctx)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func (a *admin) listFirms(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-firms", flag.ContinueOnError)
	pending := fs.Bool("pending", false, "Only firms awaiting activation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	firms, err := a.firms.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TAX ID\tCOMPANY\tCITY\tACTIVE\tVERIFIED\tREGISTERED")
	for _, f := range firms {
		if *pending && f.IsActive {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\n",
			f.TaxID, f.CompanyName, f.City, f.IsActive, f.IsVerified, f.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}

// setStatus activates (and verifies) or deactivates a firm. Deactivation
// leaves verification alone; existing sessions stop working on their next
// check.
func (a *admin) setStatus(ctx context.Context, args []string, active bool) error {
	name := "deactivate"
	action := models.ActionFirmDeactivate
	if active {
		name = "activate"
		action = models.ActionFirmActivate
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	taxID := fs.String("tax-id", "", "Tax id (CUI) of the firm")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taxID == "" {
		return fmt.Errorf("%s: -tax-id is required", name)
	}

	firm, err := a.firms.GetByTaxID(ctx, strings.ToUpper(strings.TrimSpace(*taxID)))
	if err != nil {
		return err
	}
	if firm == nil {
		return fmt.Errorf("%s: no firm with tax id %s", name, *taxID)
	}

	verified := firm.IsVerified || active
	if err := a.firms.SetStatus(ctx, firm.ID, active, verified, a.now()); err != nil {
		return err
	}
	if err := a.audit.Log(ctx, firm.ID, "", action, firm.TaxID, map[string]any{"source": "firmadmin"}, ""); err != nil {
		a.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
	a.log.Info("firm status changed", zap.String("firm_id", firm.ID), zap.String("tax_id", firm.TaxID), zap.Bool("active", active))
	fmt.Fprintf(a.out, "%s: %s (%s) active=%t verified=%t\n", name, firm.CompanyName, firm.TaxID, active, verified)
	return nil
}

func (a *admin) listAudit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	taxID := fs.String("tax-id", "", "Only entries for this firm")
	action := fs.String("action", "", "Only entries with this action")
	limit := fs.Int("limit", 50, "Maximum entries to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.AuditFilter{Action: *action, Limit: *limit}
	if *taxID != "" {
		firm, err := a.firms.GetByTaxID(ctx, strings.ToUpper(*taxID))
		if err != nil {
			return err
		}
		if firm == nil {
			return fmt.Errorf("audit: no firm with tax id %s", *taxID)
		}
		filter.FirmID = firm.ID
	}

	logs, total, err := a.audit.List(ctx, filter)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tFIRM\tUSER\tTARGET\tIP")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Timestamp.Format(time.RFC3339), l.Action, l.FirmID, l.FirmUserID, l.Target, l.IPAddress)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d entries\n", len(logs), total)
	return nil
}

func (a *admin) sweep(ctx context.Context) error {
	if a.sessionsInRedis {
		fmt.Fprintln(a.out, "sessions are stored in redis and expire on their own")
		return nil
	}
	n, err := a.sessions.DeleteExpired(ctx, a.now())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d expired sessions\n", n)
	return nil
}
