package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEntitlementCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryEntitlementCache()
	userId := uuid.New()

	got, err := c.Get(ctx, userId)
	require.NoError(t, err)
	assert.Nil(t, got)

	end := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, c.Set(ctx, userId, Entitlement{PlanSlug: "pro", IsPremium: true, DailyLimit: 40, ExpiresAt: &end}))

	got, err = c.Get(ctx, userId)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pro", got.PlanSlug)
	assert.Equal(t, 40, got.DailyLimit)

	require.NoError(t, c.Delete(ctx, userId))
	got, err = c.Get(ctx, userId)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTTLFor(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(2 * time.Hour)
	far := now.Add(60 * 24 * time.Hour)
	past := now.Add(-time.Hour)

	assert.Equal(t, defaultTTL, ttlFor(Entitlement{}, now))
	assert.Equal(t, 2*time.Hour, ttlFor(Entitlement{ExpiresAt: &soon}, now))
	assert.Equal(t, defaultTTL, ttlFor(Entitlement{ExpiresAt: &far}, now))
	assert.Equal(t, time.Second, ttlFor(Entitlement{ExpiresAt: &past}, now))
}
