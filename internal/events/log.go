package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// LogPublisher writes registration events to the application log. It is
// used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher returns a publisher that logs through logger.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) FirmRegistered(_ context.Context, firm *models.Firm, ceo *models.FirmUser) error {
	ev := NewFirmRegistered(firm, ceo, time.Now())
	p.logger.Info("firm awaiting activation",
		zap.String("event", ev.Type),
		zap.String("firm_id", ev.FirmID),
		zap.String("company_name", ev.CompanyName),
		zap.String("tax_id", ev.TaxID),
		zap.Strings("specialties", ev.Specialties),
		zap.String("ceo_email", ev.CEOEmail),
	)
	return nil
}
