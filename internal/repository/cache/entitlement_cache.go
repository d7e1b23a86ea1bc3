package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 24 * time.Hour

// Entitlement is the cached view of what a user's plan allows.
type Entitlement struct {
	PlanSlug   string     `json:"plan_slug"`
	IsPremium  bool       `json:"is_premium"`
	DailyLimit int        `json:"daily_limit"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type EntitlementCache interface {
	Set(ctx context.Context, userId uuid.UUID, e Entitlement) error
	// Get returns nil when nothing is cached.
	Get(ctx context.Context, userId uuid.UUID) (*Entitlement, error)
	Delete(ctx context.Context, userId uuid.UUID) error
}

func entitlementKey(userId uuid.UUID) string {
	return "entitlement:" + userId.String()
}

// ttlFor keeps an entry no longer than the subscription it describes.
func ttlFor(e Entitlement, now time.Time) time.Duration {
	if e.ExpiresAt == nil {
		return defaultTTL
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl > defaultTTL {
		return defaultTTL
	}
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}
