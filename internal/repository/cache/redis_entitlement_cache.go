package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisEntitlementCache struct {
	rdb *redis.Client
}

func NewRedisEntitlementCache(rdb *redis.Client) *RedisEntitlementCache {
	return &RedisEntitlementCache{rdb: rdb}
}

func (c *RedisEntitlementCache) Set(ctx context.Context, userId uuid.UUID, e Entitlement) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, entitlementKey(userId), data, ttlFor(e, time.Now())).Err()
}

func (c *RedisEntitlementCache) Get(ctx context.Context, userId uuid.UUID) (*Entitlement, error) {
	data, err := c.rdb.Get(ctx, entitlementKey(userId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var e Entitlement
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *RedisEntitlementCache) Delete(ctx context.Context, userId uuid.UUID) error {
	return c.rdb.Del(ctx, entitlementKey(userId)).Err()
}
