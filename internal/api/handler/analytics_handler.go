package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talentbridge/auth-service/internal/core/ports"
)

// AnalyticsHandler exposes login analytics and the security-insights report.
type AnalyticsHandler struct {
	analytics ports.AnalyticsService
}

func NewAnalyticsHandler(analytics ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Overview returns aggregate login stats for the caller: per-day counts,
// network and device buckets, and recent suspicious events.
func (h *AnalyticsHandler) Overview(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	overview, err := h.analytics.Overview(c.Request().Context(), id.AccountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, overview)
}

// SecurityInsights returns the caller's 24h risk score and recommendations.
func (h *AnalyticsHandler) SecurityInsights(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	insights, err := h.analytics.SecurityInsights(c.Request().Context(), id.AccountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, insights)
}

// AccountSecurityInsights is the admin view of another account's report.
// Route-level RBAC restricts it to admins.
func (h *AnalyticsHandler) AccountSecurityInsights(c echo.Context) error {
	accountID := c.Param("id")
	if accountID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing account id")
	}

	insights, err := h.analytics.SecurityInsights(c.Request().Context(), accountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, insights)
}
