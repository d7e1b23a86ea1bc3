package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExclusive(t *testing.T) {
	l := NewMemoryLocker()

	release, err := l.Acquire(context.Background(), PaymentKey("BET1"), time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, PaymentKey("BET1"), time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	// other keys are independent
	other, err := l.Acquire(context.Background(), PaymentKey("BET2"), time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(context.Background(), PaymentKey("BET1"), time.Minute)
	require.NoError(t, err)
	again()
}

func TestMemoryLockerExpires(t *testing.T) {
	l := NewMemoryLocker()

	stale, err := l.Acquire(context.Background(), UserKey("u1"), 30*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	fresh, err := l.Acquire(ctx, UserKey("u1"), time.Minute)
	require.NoError(t, err)

	// the expired holder must not drop the new holder's lock
	stale()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel2()
	_, err = l.Acquire(ctx2, UserKey("u1"), time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	fresh()
}

func TestMemoryLockerSerializes(t *testing.T) {
	l := NewMemoryLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "k", time.Minute)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
