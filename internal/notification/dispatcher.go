package notification

import (
	"context"
	"encoding/json"
	"time"

	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Topic is the in-process queue the Worker consumes.
const Topic = "notifications"

const publishTimeout = 3 * time.Second

// EventPublisher puts domain events on the shared bus (NATS).
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Dispatcher struct {
	queue  message.Publisher
	events EventPublisher
	logger logger.ILogger
}

// NewDispatcher builds a Sender. eventPublisher may be nil.
func NewDispatcher(queue message.Publisher, eventPublisher EventPublisher, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		events: eventPublisher,
		logger: log,
	}
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		d.logger.Error("NOTIFICATION", "Failed to encode notification", map[string]interface{}{"kind": msg.Kind, "error": err.Error()})
		return
	}
	if err := d.queue.Publish(Topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		d.logger.Warn("NOTIFICATION", "Failed to enqueue notification", map[string]interface{}{
			"kind":    msg.Kind,
			"user_id": msg.UserId,
			"error":   err.Error(),
		})
	}

	if d.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	evt := events.BaseEvent{
		Type: eventType(msg.Kind),
		Data: map[string]interface{}{
			"user_id":     msg.UserId,
			"plan_slug":   msg.PlanSlug,
			"amount":      msg.Amount,
			"currency":    msg.Currency,
			"reference":   msg.Reference,
			"reason":      msg.Reason,
			"occurred_at": msg.OccurredAt,
		},
		OccurredAt: msg.OccurredAt,
	}
	if err := d.events.Publish(pubCtx, evt); err != nil {
		d.logger.Warn("NOTIFICATION", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}
