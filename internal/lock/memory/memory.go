package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/ordersaga/internal/lock"
)

type entry struct {
	token   string
	expires time.Time
}

// Locker is an in-process lock.Locker, only valid for single process deployments.
type Locker struct {
	mu      sync.Mutex
	locks   map[string]entry
	timeNow func() time.Time
}

var _ lock.Locker = &Locker{}

// NewLocker returns a new in-process locker.
func NewLocker() *Locker {
	return &Locker{
		locks:   map[string]entry{},
		timeNow: time.Now,
	}
}

func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (lock.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeNow()
	if e, ok := l.locks[key]; ok && now.Before(e.expires) {
		return nil, fmt.Errorf("%s: %w", key, lock.ErrLocked)
	}

	token := ulid.Make().String()
	l.locks[key] = entry{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		// Only release our own lock, it could have expired and been taken again.
		if e, ok := l.locks[key]; ok && e.token == token {
			delete(l.locks, key)
		}
		return nil
	}, nil
}
