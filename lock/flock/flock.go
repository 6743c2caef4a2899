package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/projecteru2/debridctl/lock"
)

// compile-time interface check.
var _ lock.Locker = (*Lock)(nil)

// Lock is a run lock backed by flock(2). The lock file is left in place
// after release.
type Lock struct {
	fl *flock.Flock
}

// New creates a Lock for path. The parent directory is created on first use.
func New(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// TryLock takes the exclusive lock or fails immediately with lock.ErrHeld.
func (l *Lock) TryLock(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o750); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	locked, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", l.fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", l.fl.Path(), lock.ErrHeld)
	}
	return nil
}

// Unlock releases the flock.
func (l *Lock) Unlock(_ context.Context) error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release flock %s: %w", l.fl.Path(), err)
	}
	return nil
}
