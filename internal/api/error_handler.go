package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. The
// optional fields carry structured context for lock and role failures.
type errorResponse struct {
	Error            string `json:"error"`
	RemainingMinutes int    `json:"remaining_minutes,omitempty"`
	Role             string `json:"role,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes (423 for lockout,
//     403 for role mismatch, 401 for credential and token failures).
//   - Logs unexpected errors internally without leaking details — in
//     particular, configuration failures never reach the client.
//   - Renders a consistent JSON envelope.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var locked *domain.AccountLockedError
	if errors.As(err, &locked) {
		return http.StatusLocked, errorResponse{
			Error:            locked.Error(),
			RemainingMinutes: locked.RemainingMinutes,
		}
	}

	var mismatch *domain.RoleMismatchError
	if errors.As(err, &mismatch) {
		return http.StatusForbidden, errorResponse{
			Error: "account role does not match the requested login type",
			Role:  mismatch.Role,
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"}
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, errorResponse{Error: "account already exists"}
	case errors.Is(err, domain.ErrAccountNotFound):
		// Existence is never confirmed or denied to the caller.
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrPasswordReused):
		return http.StatusBadRequest, errorResponse{Error: "new password was used too recently"}
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "too many attempts, try again later"}
	case errors.Is(err, domain.ErrConfig):
		log.Error().Err(err).Msg("configuration error surfaced at request time")
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
