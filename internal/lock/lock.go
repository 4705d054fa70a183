package lock

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrLocked is returned when the lock is held by someone else.
var ErrLocked = errors.New("lock is held")

// ReleaseFunc releases a held lock.
type ReleaseFunc func(ctx context.Context) error

// Locker takes short-lived locks that expire by themselves after the TTL.
type Locker interface {
	// Lock takes the lock of key, returns ErrLocked if it's already held.
	Lock(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// Key joins lock key parts.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
