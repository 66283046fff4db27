package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talentbridge/auth-service/internal/core/ports"
)

// SessionHandler exposes the per-account session registry.
type SessionHandler struct {
	sessions ports.SessionService
}

func NewSessionHandler(sessions ports.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List returns the caller's sessions active within the configured window.
func (h *SessionHandler) List(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	views, err := h.sessions.List(c.Request().Context(), id.AccountID, id.Token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"sessions": views})
}

// Revoke removes one session by id.
func (h *SessionHandler) Revoke(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing session id")
	}

	if err := h.sessions.Revoke(c.Request().Context(), id.AccountID, sessionID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "session revoked"})
}

// RevokeOthers removes every session except the caller's current one.
func (h *SessionHandler) RevokeOthers(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	if err := h.sessions.RevokeOthers(c.Request().Context(), id.AccountID, id.Token); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "other sessions revoked"})
}

// Touch bumps last-activity on the caller's session.
func (h *SessionHandler) Touch(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	if err := h.sessions.Touch(c.Request().Context(), id.AccountID, id.Token); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "session activity updated"})
}
