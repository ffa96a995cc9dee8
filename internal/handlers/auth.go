package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/httperr"
	"github.com/Skotchmaster/spondias/internal/logging"
	authmw "github.com/Skotchmaster/spondias/internal/middleware/auth"
	"github.com/Skotchmaster/spondias/internal/ratelimit"
	"github.com/Skotchmaster/spondias/internal/service"
)

type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
}

type RateLimiter interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error)
}

type Rule struct {
	Limit  int
	Window time.Duration
}

type AuthHandler struct {
	Svc     Authenticator
	Limiter RateLimiter

	LoginRule    Rule
	RegisterRule Rule

	TrustProxy   bool
	SecureCookie bool
	TokenTTL     time.Duration
}

type registerRequest struct {
	Name     string `json:"name"     validate:"omitempty,min=2,max=120"`
	Email    string `json:"email"    validate:"required,email"`
	Login    string `json:"login"    validate:"-"`
	CPF      string `json:"cpf"      validate:"required,cpf"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Login    string `json:"login"    validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	if err := h.throttle(c, l, "auth:register:", h.RegisterRule); err != nil {
		return err
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return httperr.Validation("invalid payload", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		req.Email = strings.TrimSpace(req.Login)
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return validationError(err)
	}

	res, err := h.Svc.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		CPF:      req.CPF,
		Password: req.Password,
	})
	if err != nil {
		return h.serviceError(l, err)
	}

	c.SetCookie(CreateCookie(authmw.TokenCookie, res.Token, "/", h.TokenTTL, h.SecureCookie))
	l.Info("register_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	if err := h.throttle(c, l, "auth:login:", h.LoginRule); err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return httperr.Validation("invalid payload", nil)
	}
	req.Login = strings.TrimSpace(req.Login)
	if err := c.Validate(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return validationError(err)
	}

	res, err := h.Svc.Login(ctx, service.LoginInput{Login: req.Login, Password: req.Password})
	if err != nil {
		return h.serviceError(l, err)
	}

	c.SetCookie(CreateCookie(authmw.TokenCookie, res.Token, "/", h.TokenTTL, h.SecureCookie))
	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, res)
}

// LogOut only clears the cookie; an issued token stays valid until it
// expires.
func (h *AuthHandler) LogOut(c echo.Context) error {
	c.SetCookie(DeleteCookie(authmw.TokenCookie, "/", h.SecureCookie))
	logging.FromContext(c.Request().Context()).Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// throttle runs before the body is read so rejected clients cost no parsing.
func (h *AuthHandler) throttle(c echo.Context, l *slog.Logger, prefix string, rule Rule) error {
	client := ClientIP(c.Request(), h.TrustProxy)
	res, err := h.Limiter.Consume(c.Request().Context(), prefix+client, rule.Limit, rule.Window)
	if err != nil {
		l.Error("rate_limit_error", "error", err)
		return httperr.Internal()
	}
	if !res.Allowed {
		c.Response().Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
		l.Warn("rate_limited", "status", 429, "client", client, "retry_after", res.RetryAfterSeconds)
		return httperr.New(http.StatusTooManyRequests, httperr.CodeTooManyRequests, "too many requests, try again shortly")
	}
	return nil
}

func (h *AuthHandler) serviceError(l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn("auth_failed", "status", 400, "error", err)
		return httperr.Validation("invalid payload", nil)
	case errors.Is(err, service.ErrEmailTaken):
		l.Warn("auth_failed", "status", 409, "field", "email")
		return httperr.New(http.StatusConflict, httperr.CodeConflict, "email already registered")
	case errors.Is(err, service.ErrCPFTaken):
		l.Warn("auth_failed", "status", 409, "field", "cpf")
		return httperr.New(http.StatusConflict, httperr.CodeConflict, "cpf already registered")
	case errors.Is(err, service.ErrConflict):
		l.Warn("auth_failed", "status", 409)
		return httperr.New(http.StatusConflict, httperr.CodeConflict, "user already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		l.Warn("auth_failed", "status", 401)
		return httperr.Unauthorized("invalid credentials")
	default:
		l.Error("auth_failed", "status", 500, "error", err)
		return httperr.Internal()
	}
}
