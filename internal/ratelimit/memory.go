package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPruneInterval = time.Minute

type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
	// dead is set when the bucket has been pruned from the table; a caller
	// still holding it must look the key up again.
	dead bool
}

func (b *bucket) take(now time.Time, limit int, window time.Duration) Result {
	if b.count == 0 || !now.Before(b.resetAt) {
		b.count = 1
		b.resetAt = now.Add(window)
		return Result{
			Allowed:           true,
			RetryAfterSeconds: retryAfter(window),
			Remaining:         max(limit-1, 0),
		}
	}

	retry := retryAfter(b.resetAt.Sub(now))
	if b.count >= limit {
		return Result{Allowed: false, RetryAfterSeconds: retry, Remaining: 0}
	}
	b.count++
	return Result{Allowed: true, RetryAfterSeconds: retry, Remaining: max(limit-b.count, 0)}
}

// MemoryStore is the process-local fixed-window counter used when the shared
// counter service is not configured or not reachable. Each key has its own
// lock, so unrelated keys never contend.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	now        func() time.Time
	pruneEvery time.Duration
	lastPrune  atomic.Int64
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

func WithPruneInterval(d time.Duration) MemoryOption {
	return func(m *MemoryStore) { m.pruneEvery = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		buckets:    make(map[string]*bucket),
		now:        time.Now,
		pruneEvery: defaultPruneInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastPrune.Store(m.now().UnixNano())
	return m
}

func (m *MemoryStore) Consume(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, ErrInvalidArgument
	}

	now := m.now()
	m.maybePrune(now)

	for {
		b := m.bucket(key)
		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}
		res := b.take(now, limit, window)
		b.mu.Unlock()
		return res, nil
	}
}

// Len reports the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets)
}

func (m *MemoryStore) bucket(key string) *bucket {
	m.mu.RLock()
	b := m.buckets[key]
	m.mu.RUnlock()
	if b != nil {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b = m.buckets[key]; b == nil {
		b = &bucket{}
		m.buckets[key] = b
	}
	return b
}

// maybePrune drops expired buckets at most once per prune interval. Only the
// caller that wins the CAS pays for the sweep.
func (m *MemoryStore) maybePrune(now time.Time) {
	last := m.lastPrune.Load()
	if now.UnixNano()-last < int64(m.pruneEvery) {
		return
	}
	if !m.lastPrune.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, b := range m.buckets {
		b.mu.Lock()
		if !now.Before(b.resetAt) {
			b.dead = true
			delete(m.buckets, key)
		}
		b.mu.Unlock()
	}
}

func retryAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
