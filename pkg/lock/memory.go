package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MemoryLocker is a single-process Locker, used when Redis is not reachable.
type MemoryLocker struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		cache: cache.New(time.Minute, time.Minute),
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	for {
		if l.tryAdd(key, token, ttl) {
			var once sync.Once
			return func() {
				once.Do(func() { l.release(key, token) })
			}, nil
		}
		if err := wait(ctx); err != nil {
			return nil, err
		}
	}
}

// Add fails while an unexpired item exists, which is exactly SET NX.
func (l *MemoryLocker) tryAdd(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Add(key, token, ttl) == nil
}

func (l *MemoryLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.cache.Get(key); ok && v.(string) == token {
		l.cache.Delete(key)
	}
}
