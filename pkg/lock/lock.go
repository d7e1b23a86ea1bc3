package lock

import (
	"context"
	"errors"
	"time"
)

var ErrNotAcquired = errors.New("lock: not acquired")

// Locker hands out short-lived advisory locks keyed by name.
// Release is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

const retryInterval = 25 * time.Millisecond

// wait blocks for one retry interval or until ctx is done.
func wait(ctx context.Context) error {
	t := time.NewTimer(retryInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ErrNotAcquired
	case <-t.C:
		return nil
	}
}

func UserKey(userId string) string {
	return "lock:user:" + userId
}

func PaymentKey(reference string) string {
	return "lock:payment:" + reference
}
