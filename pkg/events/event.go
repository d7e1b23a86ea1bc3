package events

import "time"

// Event codes published on the bus under "events.<code>".
const (
	PaymentCompleted      = "PAYMENT_COMPLETED"
	PaymentFailed         = "PAYMENT_FAILED"
	SubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	SubscriptionExpired   = "SUBSCRIPTION_EXPIRED"
)

type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by every producer in this service.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
