package csrf

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/httperr"
	"github.com/Skotchmaster/spondias/internal/logging"
)

type Config struct {
	// CookieName is the session cookie that makes a request ambient-authenticated.
	CookieName string
	// TrustForwardedProto takes the request scheme from X-Forwarded-Proto.
	TrustForwardedProto bool
}

// SameOrigin rejects state-changing requests that ride on the session cookie
// unless their Origin (or Referer) matches the host they were sent to.
// Requests carrying an Authorization header, or no session cookie at all, pass
// untouched: a browser never attaches those cross-site on its own.
func SameOrigin(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if safeMethod(req.Method) || !cookieAuthenticated(req, cfg.CookieName) {
				return next(c)
			}
			if !sameOrigin(req, cfg.TrustForwardedProto) {
				logging.FromContext(req.Context()).Warn("csrf_rejected",
					"mw", "csrf",
					"origin", req.Header.Get("Origin"),
				)
				return httperr.New(http.StatusForbidden, httperr.CodeForbidden, "invalid origin")
			}
			return next(c)
		}
	}
}

func safeMethod(m string) bool {
	switch strings.ToUpper(m) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func cookieAuthenticated(r *http.Request, name string) bool {
	if r.Header.Get(echo.HeaderAuthorization) != "" {
		return false
	}
	_, err := r.Cookie(name)
	return err == nil
}

func sameOrigin(r *http.Request, trustProto bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		origin = r.Header.Get("Referer")
	}
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, schemeOf(r, trustProto)) && strings.EqualFold(u.Host, r.Host)
}

func schemeOf(r *http.Request, trustProto bool) string {
	if trustProto {
		if p := r.Header.Get(echo.HeaderXForwardedProto); p != "" {
			return p
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
