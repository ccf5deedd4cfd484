package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lupy1233/cozyhomeV1/internal/auth"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

// listUsers handles GET /firm/users
func (h *Handlers) listUsers(c echo.Context) error {
	session := auth.SessionFromContext(c)

	users, err := h.auth.ListFirmUsers(c.Request().Context(), session.Firm.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"users":   out,
	})
}

// createUser handles POST /firm/users
func (h *Handlers) createUser(c echo.Context) error {
	session := auth.SessionFromContext(c)

	var req models.NewFirmUser
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	user, err := h.auth.RegisterFirmUser(c.Request().Context(), session.Firm.ID, req, session.User.ID, clientInfo(c))
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			return fail(c, http.StatusBadRequest, verr.Message)
		case errors.Is(err, auth.ErrEmailTaken):
			return fail(c, http.StatusConflict, err.Error())
		default:
			h.log.Error("create firm user error", zap.Error(err))
			return fail(c, http.StatusInternalServerError, auth.ErrServerError.Error())
		}
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}
