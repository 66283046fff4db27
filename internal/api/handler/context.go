package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// identity is the authenticated caller extracted from context.
type identity struct {
	AccountID string
	Role      string
	Email     string
	Token     string
}

// ctxIdentity extracts the claims injected by the Auth middleware and
// fast-fails before any service call: a populated account id proves the
// middleware ran; the raw token is needed by the session endpoints to
// recognize the caller's own session.
func ctxIdentity(c echo.Context) (identity, error) {
	id, _ := c.Get("account_id").(string)
	if id == "" {
		return identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ := c.Get("role").(string)
	email, _ := c.Get("email").(string)
	token, _ := c.Get("token").(string)
	return identity{AccountID: id, Role: role, Email: email, Token: token}, nil
}
