package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// listAudit handles GET /firm/audit. Entries are always scoped to the
// caller's firm.
func (h *Handlers) listAudit(c echo.Context) error {
	session := auth.SessionFromContext(c)

	filter := models.AuditFilter{
		FirmID: session.Firm.ID,
		Action: c.QueryParam("action"),
		Limit:  50,
	}
	if limit := c.QueryParam("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 && l <= 500 {
			filter.Limit = l
		}
	}
	if offset := c.QueryParam("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	logs, total, err := h.audit.List(c.Request().Context(), filter)
	if err != nil {
		h.log.Error("list audit logs error", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "failed to list audit logs")
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"logs":    logs,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}
