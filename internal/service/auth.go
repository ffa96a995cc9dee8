package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/spondias/internal/logging"
	"github.com/Skotchmaster/spondias/internal/models"
	"github.com/Skotchmaster/spondias/internal/mykafka"
	"github.com/Skotchmaster/spondias/internal/repo"
	"github.com/Skotchmaster/spondias/internal/tokens"
)

type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByCPF(ctx context.Context, cpf string) (*models.User, error)
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
}

type TokenIssuer interface {
	Issue(subject, email, role string, ttl time.Duration) (string, time.Time, error)
}

type AuthService struct {
	Repo     UserRepo
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	TokenTTL time.Duration

	// Events is optional; nil disables publishing.
	Events mykafka.Publisher
	Topic  string
}

type RegisterInput struct {
	Name     string
	Email    string
	CPF      string
	Password string
}

type LoginInput struct {
	Login    string
	Password string
}

type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email := normalizeEmail(in.Email)
	cpf := strings.TrimSpace(in.CPF)
	if email == "" || cpf == "" || in.Password == "" {
		return nil, ErrValidation
	}

	// Both identifiers are checked before anything is written.
	if err := s.ensureFree(ctx, s.Repo.FindByEmail, email, ErrEmailTaken); err != nil {
		l.Warn("register_rejected", "reason", err)
		return nil, err
	}
	if err := s.ensureFree(ctx, s.Repo.FindByCPF, cpf, ErrCPFTaken); err != nil {
		l.Warn("register_rejected", "reason", err)
		return nil, err
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("%w: hash password: %w", ErrInternal, err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		CPF:          cpf,
		PasswordHash: pwHash,
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_rejected", "reason", "unique index race")
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		l.Error("register_error", "reason", "cannot create user", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("register_error", "reason", "cannot issue token", "user_id", user.ID, "error", err)
		return nil, err
	}

	l.Info("user_registered", "user_id", user.ID)
	s.publish(ctx, mykafka.EventUserRegistered, user)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	login := strings.TrimSpace(in.Login)
	if strings.Contains(login, "@") {
		login = normalizeEmail(login)
	}
	if login == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Repo.FindByLogin(ctx, login)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		l.Warn("login_failed", "reason", "unknown login")
		return nil, ErrInvalidCredentials
	case err != nil:
		l.Error("login_error", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if !user.IsActive {
		l.Warn("login_failed", "reason", "inactive", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(in.Password, user.PasswordHash) {
		l.Warn("login_failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("login_error", "reason", "cannot issue token", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, mykafka.EventUserLoggedIn, user)
	return res, nil
}

func (s *AuthService) ensureFree(ctx context.Context, find func(context.Context, string) (*models.User, error), value string, taken error) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, repo.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Issue(user.ID.String(), user.Email, tokens.RoleAdmin, s.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %w", ErrInternal, err)
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: exp,
		User: UserView{
			ID:    user.ID.String(),
			Name:  user.Name,
			Email: user.Email,
			CPF:   user.CPF,
		},
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	if s.Events == nil {
		return
	}
	event := mykafka.UserEvent{
		Type:       eventType,
		UserID:     user.ID.String(),
		Email:      user.Email,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.Events.PublishEvent(ctx, s.Topic, user.ID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("kafka_publish_failed", "event", eventType, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
