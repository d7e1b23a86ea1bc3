// FILE: internal/entity/subscription_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// IsTerminal: expired and cancelled subscriptions never change again.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusExpired || s == SubscriptionStatusCancelled
}

type Subscription struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	PlanSlug    string
	Status      SubscriptionStatus
	StartDate   time.Time
	EndDate     *time.Time // nil = unlimited (or not activated yet)
	AutoRenew   bool
	AmountPaid  decimal.Decimal
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsLive reports whether the subscription currently grants its plan.
func (s *Subscription) IsLive(now time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(now)
}

// DaysRemaining rounds down; unlimited subscriptions return -1.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if s.EndDate == nil {
		return -1
	}
	if !s.EndDate.After(now) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}
