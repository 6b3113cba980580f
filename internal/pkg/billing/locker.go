package billing

import (
	"context"
	"sync"
	"time"

	"github.com/commune-app/commune/internal/pkg/cache"
)

// Locker serializes subscription changes per user. cache.Locker is the
// shared implementation; LocalLocker covers single-process use.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error)
}

type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time)}
}

func (l *LocalLocker) Acquire(_ context.Context, name string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if until, ok := l.held[name]; ok && now.Before(until) {
		return nil, cache.ErrLockHeld
	}
	expires := now.Add(ttl)
	l.held[name] = expires

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[name].Equal(expires) {
			delete(l.held, name)
		}
	}, nil
}
