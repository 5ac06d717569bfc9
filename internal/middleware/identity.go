package middleware

// identity.go holds helpers shared across middleware files.  userID
// pulls the subject claim from the JWT stored in the Echo context so
// the rate limiter can key buckets per user; unauthenticated requests
// fall back to "guest".

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the request context.  JWTAuth
// stores the raw sub claim under "user_id"; numeric claims decode as
// float64, so normalize everything through fmt.  Returns "guest" when
// no user is authenticated.
func userID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case nil:
		return "guest"
	case string:
		if v == "" {
			return "guest"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
