package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/httperr"
	"github.com/Skotchmaster/spondias/internal/logging"
	"github.com/Skotchmaster/spondias/internal/tokens"
)

// TokenCookie is the session cookie set at login and registration.
const TokenCookie = "spondias_token"

const rejectMessage = "invalid or missing token"

var errNoToken = errors.New("missing token")

type Gate struct {
	verifier tokens.TokenVerifier
}

func NewGate(v tokens.TokenVerifier) *Gate {
	return &Gate{verifier: v}
}

// RequireToken lets the request through only with a valid token, read from
// the Authorization header first and the session cookie second. Every
// rejection gets the same response.
func (g *Gate) RequireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := g.authenticate(c); err != nil {
			return httperr.Unauthorized(rejectMessage)
		}
		return next(c)
	}
}

// RequirePage is RequireToken for browser routes: a rejected request is
// redirected to loginPath, which itself is always let through.
func (g *Gate) RequirePage(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == loginPath {
				return next(c)
			}
			if err := g.authenticate(c); err != nil {
				return c.Redirect(http.StatusTemporaryRedirect, loginPath)
			}
			return next(c)
		}
	}
}

func (g *Gate) authenticate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("mw", "auth_gate")

	raw := extractToken(c.Request())
	if raw == "" {
		l.Warn("auth_rejected", "reason", errNoToken)
		return errNoToken
	}

	claims, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, tokens.ErrMissingSecret) {
			l.Error("auth_misconfigured", "error", err)
		} else {
			l.Warn("auth_rejected", "reason", err)
		}
		return err
	}

	setClaims(c, claims)
	return nil
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
