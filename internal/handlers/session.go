package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/httperr"
	authmw "github.com/Skotchmaster/spondias/internal/middleware/auth"
)

type sessionResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session describes the caller's token. It sits behind the gate.
func Session(c echo.Context) error {
	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return httperr.Unauthorized("invalid or missing token")
	}
	return c.JSON(http.StatusOK, sessionResponse{
		ID:        claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.Expiry(),
	})
}
