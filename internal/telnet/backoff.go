package telnet

import (
	"context"
	"math/rand/v2"
	"time"
)

// baseDelay is the minimum reconnect delay; up to the same amount again is
// added as jitter.
const baseDelay = 17 * time.Second

// JitteredDelay returns a reconnect delay uniformly distributed in
// [17s, 34s].
func JitteredDelay() time.Duration {
	return baseDelay + time.Duration(rand.Int64N(int64(baseDelay)+1))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
