package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/httperr"
	"github.com/Skotchmaster/spondias/internal/logging"
	"github.com/Skotchmaster/spondias/internal/tokens"
)

// AdminOnly must run after RequireToken.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return httperr.Unauthorized(rejectMessage)
		}
		if claims.Role != tokens.RoleAdmin {
			logging.FromContext(c.Request().Context()).Warn("auth_forbidden", "user_id", claims.Subject, "role", claims.Role)
			return httperr.New(http.StatusForbidden, httperr.CodeForbidden, "not enough rights")
		}
		return next(c)
	}
}
