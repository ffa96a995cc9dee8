package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/tokens"
)

const claimsKey = "auth_claims"

func setClaims(c echo.Context, claims *tokens.Claims) {
	c.Set(claimsKey, claims)
	c.Set("user_id", claims.Subject)
	c.Set("role", claims.Role)
}

// ClaimsFrom returns the claims stored by RequireToken.
func ClaimsFrom(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*tokens.Claims)
	return claims, ok && claims != nil
}
