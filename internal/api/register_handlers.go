package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

const registrationReceived = "Registration received. We will contact you within 24-48 hours."

// registerFirm handles POST /firm/register
func (h *Handlers) registerFirm(c echo.Context) error {
	var req models.FirmRegistration
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	_, err := h.auth.RegisterFirm(c.Request().Context(), req, clientInfo(c))
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			return fail(c, http.StatusBadRequest, verr.Message)
		case errors.Is(err, auth.ErrTaxIDTaken), errors.Is(err, auth.ErrEmailTaken):
			return fail(c, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("firm registration error", zap.Error(err))
			return fail(c, http.StatusInternalServerError, auth.ErrServerError.Error())
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": registrationReceived,
	})
}
