package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type MemoryEntitlementCache struct {
	cache *gocache.Cache
}

func NewMemoryEntitlementCache() *MemoryEntitlementCache {
	return &MemoryEntitlementCache{
		cache: gocache.New(defaultTTL, 10*time.Minute),
	}
}

func (c *MemoryEntitlementCache) Set(ctx context.Context, userId uuid.UUID, e Entitlement) error {
	c.cache.Set(entitlementKey(userId), e, ttlFor(e, time.Now()))
	return nil
}

func (c *MemoryEntitlementCache) Get(ctx context.Context, userId uuid.UUID) (*Entitlement, error) {
	if x, found := c.cache.Get(entitlementKey(userId)); found {
		e := x.(Entitlement)
		return &e, nil
	}
	return nil, nil
}

func (c *MemoryEntitlementCache) Delete(ctx context.Context, userId uuid.UUID) error {
	c.cache.Delete(entitlementKey(userId))
	return nil
}
