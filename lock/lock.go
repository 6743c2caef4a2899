package lock

import (
	"context"
	"errors"
)

// ErrHeld is returned by TryLock when another process owns the lock.
var ErrHeld = errors.New("lock held by another process")

// Locker serializes mutating debridctl runs across processes.
type Locker interface {
	// TryLock acquires the lock without waiting, returning ErrHeld if it is taken.
	TryLock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// WithLock acquires l without waiting, calls fn, and releases l even
// when fn fails.
func WithLock(ctx context.Context, l Locker, fn func() error) error {
	if err := l.TryLock(ctx); err != nil {
		return err
	}
	defer l.Unlock(ctx) //nolint:errcheck
	return fn()
}
