package utils

import (
	"context"
	"time"
)

// PollN runs check up to attempts times, sleeping interval between tries.
// It returns true as soon as check succeeds.
func PollN(ctx context.Context, attempts int, interval time.Duration, check func() bool) bool {
	for i := 0; i < attempts; i++ {
		if check() {
			return true
		}
		if i == attempts-1 {
			break
		}
		if Sleep(ctx, interval) != nil {
			return false
		}
	}
	return false
}
