package utils

import (
	"context"
	"time"
)

// Retry calls fn up to attempts times with a fixed delay between calls.
// It returns the number of attempts made and the last error.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) (int, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if lastErr = fn(i); lastErr == nil {
			return i, nil
		}
		if i == attempts {
			break
		}
		if err := Sleep(ctx, delay); err != nil {
			return i, err
		}
	}
	return attempts, lastErr
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
