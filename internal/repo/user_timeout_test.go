package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/spondias/internal/models"
)

// stalledPool never answers: every call waits for its context to end.
type stalledPool struct {
	gorm.ConnPool
}

func (p stalledPool) PrepareContext(ctx context.Context, _ string) (*sql.Stmt, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p stalledPool) ExecContext(ctx context.Context, _ string, _ ...any) (sql.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p stalledPool) QueryContext(ctx context.Context, _ string, _ ...any) (*sql.Rows, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p stalledPool) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	<-ctx.Done()
	return p.ConnPool.QueryRowContext(ctx, query, args...)
}

func stalledDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := InitTestDB(t).Session(&gorm.Session{NewDB: true, Context: context.Background()})
	db.Statement.ConnPool = stalledPool{ConnPool: db.Statement.ConnPool}
	return db
}

func TestGormRepo_StatementsAreBounded(t *testing.T) {
	r := &GormRepo{DB: stalledDB(t), Timeout: 50 * time.Millisecond}

	calls := map[string]func(ctx context.Context) error{
		"find by login": func(ctx context.Context) error {
			_, err := r.FindByLogin(ctx, "maria@example.com")
			return err
		},
		"find by cpf": func(ctx context.Context) error {
			_, err := r.FindByCPF(ctx, "12345678901")
			return err
		},
		"create": func(ctx context.Context) error {
			return r.Create(ctx, &models.User{Email: "maria@example.com", CPF: "12345678901", PasswordHash: "x"})
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			err := call(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.NotErrorIs(t, err, ErrNotFound)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestGormRepo_ZeroTimeoutUsesDefault(t *testing.T) {
	r := &GormRepo{DB: InitTestDB(t)}
	ctx, cancel := r.bound(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, time.Second)
}
