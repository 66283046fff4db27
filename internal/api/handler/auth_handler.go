package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talentbridge/auth-service/internal/api/metrics"
	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

// AuthHandler exposes registration, login, refresh, the reset flow, and
// password change.
type AuthHandler struct {
	authService  ports.AuthService
	resetService ports.ResetService
}

func NewAuthHandler(authService ports.AuthService, resetService ports.ResetService) *AuthHandler {
	return &AuthHandler{authService: authService, resetService: resetService}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=user employer student"`
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	UserType   string `json:"userType" validate:"omitempty,oneof=user employer student admin"`
	RememberMe bool   `json:"rememberMe"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type sessionResponse struct {
	ID     string `json:"id"`
	Device string `json:"device"`
	IP     string `json:"ip"`
}

type authResponse struct {
	Token   string                 `json:"token"`
	User    *domain.Account        `json:"user"`
	Session *sessionResponse       `json:"session,omitempty"`
	Risk    *domain.RiskAssessment `json:"risk,omitempty"`
}

// Register creates a new account and signs the caller in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		IP:       c.RealIP(),
		Device:   c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toAuthResponse(result))
}

// Login authenticates credentials and returns a bearer token plus the new
// session. Lock, role, throttle, and credential failures map to 423, 403,
// 429, and 401 through the central error handler.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		UserType:   req.UserType,
		RememberMe: req.RememberMe,
		IP:         c.RealIP(),
		Device:     c.Request().UserAgent(),
	})
	if err != nil {
		observeLoginFailure(err)
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	if result.Risk != nil {
		metrics.RiskScore.Observe(float64(result.Risk.Score))
		if result.Risk.Suspicious {
			metrics.SuspiciousLoginsTotal.Inc()
		}
	}

	return c.JSON(http.StatusOK, toAuthResponse(result))
}

// Refresh re-issues a default-TTL token from a still-valid bearer token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}

	token, err := h.authService.Refresh(c.Request().Context(), raw)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("invalid").Inc()
		return err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// ForgotPassword starts the reset flow. The response is identical whether or
// not the email exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.resetService.RequestReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return c.JSON(http.StatusOK, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

// VerifyResetToken checks an outstanding reset token and returns the account
// email it belongs to.
func (h *AuthHandler) VerifyResetToken(c echo.Context) error {
	var req resetTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	email, err := h.resetService.VerifyResetToken(c.Request().Context(), req.Token)
	if err != nil {
		return resetTokenError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"email": email})
}

// ResetPassword completes the reset flow, consuming the token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.resetService.CompleteReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return resetTokenError(err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

// ChangePassword verifies the current password and stores a new one,
// rejecting recent reuse.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Request().Context(), identity.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}

// bearerToken extracts the raw token from the Authorization header for the
// endpoints that run outside the Auth middleware.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}

// resetTokenError collapses reset-token failures to a 400 per the endpoint
// contract; other errors pass through to the central handler.
func resetTokenError(err error) error {
	if errors.Is(err, domain.ErrInvalidToken) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
	}
	return err
}

func observeLoginFailure(err error) {
	var locked *domain.AccountLockedError
	var mismatch *domain.RoleMismatchError
	switch {
	case errors.As(err, &locked):
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		metrics.LockoutsTotal.Inc()
	case errors.As(err, &mismatch):
		metrics.LoginsTotal.WithLabelValues("role_mismatch").Inc()
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
	case errors.Is(err, domain.ErrRateLimited):
		metrics.LoginsTotal.WithLabelValues("throttled").Inc()
	default:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
	}
}

func toAuthResponse(result *ports.AuthResult) authResponse {
	resp := authResponse{Token: result.Token, User: result.Account, Risk: result.Risk}
	if result.Session != nil {
		resp.Session = &sessionResponse{
			ID:     result.Session.ID,
			Device: result.Session.Device,
			IP:     result.Session.IP,
		}
	}
	return resp
}
