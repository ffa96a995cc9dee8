package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/spondias/internal/models"
)

var (
	ErrNotFound  = errors.New("repo: user not found")
	ErrDuplicate = errors.New("repo: duplicate user")
)

// DefaultTimeout bounds a single credential query or insert.
const DefaultTimeout = 3 * time.Second

type GormRepo struct {
	DB *gorm.DB
	// Timeout caps every statement; past it the call fails with
	// context.DeadlineExceeded. Zero means DefaultTimeout.
	Timeout time.Duration
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db, Timeout: DefaultTimeout}
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GormRepo) FindByCPF(ctx context.Context, cpf string) (*models.User, error) {
	return r.first(ctx, "cpf = ?", cpf)
}

// FindByLogin matches either unique identifier.
func (r *GormRepo) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.first(ctx, "email = ? OR cpf = ?", login, login)
}

func (r *GormRepo) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.DB.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("repo: create user: %w", err)
	}
	return nil
}

func (r *GormRepo) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var user models.User
	if err := r.DB.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repo: find user: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	d := r.Timeout
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// isDuplicate relies on TranslateError for postgres; the sqlite driver used
// in tests reports the constraint by message only.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
