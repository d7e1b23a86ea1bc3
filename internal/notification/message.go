package notification

import (
	"context"
	"time"

	"placarcerto-be/pkg/events"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPaymentConfirmed      Kind = "payment_confirmed"
	KindSubscriptionActivated Kind = "subscription_activated"
	KindPaymentFailed         Kind = "payment_failed"
	KindSubscriptionExpired   Kind = "subscription_expired"
)

// Message describes one user-facing notification. Fields a kind does not use stay empty.
type Message struct {
	Kind       Kind       `json:"kind"`
	UserId     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	PlanSlug   string     `json:"plan_slug,omitempty"`
	PlanName   string     `json:"plan_name,omitempty"`
	Amount     string     `json:"amount,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Reference  string     `json:"reference,omitempty"`
	DailyLimit int        `json:"daily_limit,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Sender is fire-and-forget: delivery problems are logged, never returned.
type Sender interface {
	Send(ctx context.Context, msg Message)
}

// eventType maps a kind to the bus event code.
func eventType(k Kind) string {
	switch k {
	case KindPaymentConfirmed:
		return events.PaymentCompleted
	case KindPaymentFailed:
		return events.PaymentFailed
	case KindSubscriptionActivated:
		return events.SubscriptionActivated
	case KindSubscriptionExpired:
		return events.SubscriptionExpired
	}
	return "NOTIFICATION"
}
