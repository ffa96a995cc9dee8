package httpserver

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/spondias/internal/middleware/auth"
)

// Identity headers passed to the upstream admin collaborator. Values sent by
// the client are always dropped.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// NewUpstream proxies gated admin traffic (catalog management, uploads,
// admin pages) to the service that implements it.
func NewUpstream(target string) (echo.HandlerFunc, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	p := httputil.NewSingleHostReverseProxy(u)
	p.Transport = transport
	p.FlushInterval = 100 * time.Millisecond

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		originalHost := req.Host
		proto := "http"
		if req.TLS != nil {
			proto = "https"
		}

		origDirector(req)

		if req.Header.Get("X-Forwarded-Proto") == "" {
			req.Header.Set("X-Forwarded-Proto", proto)
		}
		if req.Header.Get("X-Forwarded-Host") == "" && originalHost != "" {
			req.Header.Set("X-Forwarded-Host", originalHost)
		}
	}

	return func(c echo.Context) error {
		req := c.Request()
		req.Header.Del(HeaderUserID)
		req.Header.Del(HeaderUserRole)
		if claims, ok := authmw.ClaimsFrom(c); ok {
			req.Header.Set(HeaderUserID, claims.Subject)
			req.Header.Set(HeaderUserRole, claims.Role)
		}
		p.ServeHTTP(c.Response(), req)
		return nil
	}, nil
}
