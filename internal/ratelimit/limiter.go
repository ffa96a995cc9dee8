package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Skotchmaster/spondias/internal/logging"
)

// Result is the same whichever backend produced it.
type Result struct {
	Allowed           bool
	RetryAfterSeconds int
	Remaining         int
}

// Counter is a fixed-window counter backend.
type Counter interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Limiter consumes from the shared counter when one is configured and falls
// back to the in-process store on any failure. Callers never see backend
// errors.
type Limiter struct {
	primary  Counter
	fallback *MemoryStore
	log      *slog.Logger

	degraded atomic.Bool
}

// NewLimiter accepts a nil primary, in which case every call goes to the
// in-process store.
func NewLimiter(primary Counter, fallback *MemoryStore, log *slog.Logger) *Limiter {
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Limiter{primary: primary, fallback: fallback, log: log}
}

// Consume records one hit against key. The only errors are for a
// non-positive limit or window.
func (l *Limiter) Consume(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, ErrInvalidArgument
	}

	if l.primary != nil {
		res, err := l.primary.Consume(ctx, key, limit, window)
		if err == nil {
			if l.degraded.CompareAndSwap(true, false) {
				l.log.Info("rate_limit_backend_recovered")
			}
			return res, nil
		}
		if l.degraded.CompareAndSwap(false, true) {
			l.log.Warn("rate_limit_backend_degraded", "err", err)
		}
	}

	return l.fallback.Consume(ctx, key, limit, window)
}

// Degraded reports whether the last shared-counter call failed.
func (l *Limiter) Degraded() bool {
	return l.degraded.Load()
}
