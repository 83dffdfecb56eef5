package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID pulls the user identifier that JWTAuth stored in the
// Echo context so rate-limit keys can be scoped per user. When no user
// is authenticated, "anon" is returned.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's ID as a string, or
// "anon" for unauthenticated requests. JWT numeric claims decode as
// float64, so any non-nil value is formatted rather than asserted.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return "anon"
		}
		return s
	}
	return fmt.Sprint(v)
}
