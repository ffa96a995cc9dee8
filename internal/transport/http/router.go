package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/spondias/internal/handlers"
	"github.com/Skotchmaster/spondias/internal/httperr"
	authmw "github.com/Skotchmaster/spondias/internal/middleware/auth"
	"github.com/Skotchmaster/spondias/internal/middleware/csrf"
)

type Deps struct {
	DB          *gorm.DB
	AuthHandler *handlers.AuthHandler
	Gate        *authmw.Gate

	// AdminUpstream serves every other gated path. Optional.
	AdminUpstream echo.HandlerFunc
}

const adminLoginPath = "/admin/login"

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = httperr.Handler
	e.Validator = handlers.NewValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return ready(c, d.DB) })

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.LogOut)

	sameOrigin := csrf.SameOrigin(csrf.Config{
		CookieName:          authmw.TokenCookie,
		TrustForwardedProto: d.AuthHandler.TrustProxy,
	})

	admin := e.Group("/api/admin", sameOrigin, d.Gate.RequireToken, authmw.AdminOnly)
	admin.GET("/session", handlers.Session)

	if d.AdminUpstream != nil {
		admin.Any("/*", d.AdminUpstream)

		e.Any(adminLoginPath, d.AdminUpstream)
		pages := e.Group("/admin", sameOrigin, d.Gate.RequirePage(adminLoginPath), authmw.AdminOnly)
		pages.Any("", d.AdminUpstream)
		pages.Any("/*", d.AdminUpstream)
	}
}

func ready(c echo.Context, db *gorm.DB) error {
	if db == nil {
		return c.NoContent(http.StatusOK)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
