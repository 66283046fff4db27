package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRoles restricts a route to accounts whose role belongs to the given
// set. It replaces per-handler role conditionals with a single parameterized
// check; the Auth middleware must run first.
func RequireRoles(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
