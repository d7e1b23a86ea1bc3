package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/pkg/mailer"
	"placarcerto-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Delivery pushes real-time updates, implemented by the websocket hub.
type Delivery interface {
	Send(userID uuid.UUID, push websocket.Push)
}

type Worker struct {
	subscriber message.Subscriber
	mailer     mailer.IEmailService
	delivery   Delivery
	logger     logger.ILogger
}

// NewWorker: mailer and delivery are optional.
func NewWorker(subscriber message.Subscriber, mail mailer.IEmailService, delivery Delivery, log logger.ILogger) *Worker {
	return &Worker{
		subscriber: subscriber,
		mailer:     mail,
		delivery:   delivery,
		logger:     log,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			w.process(msg)
		}
	}()

	w.logger.Info("NOTIFICATION", "Notification worker started", map[string]interface{}{"topic": Topic})
	return nil
}

func (w *Worker) process(msg *message.Message) {
	// Always Ack: a notification is never worth redelivering.
	defer msg.Ack()

	var m Message
	if err := json.Unmarshal(msg.Payload, &m); err != nil {
		w.logger.Error("NOTIFICATION", "Failed to unmarshal notification", map[string]interface{}{"error": err.Error()})
		return
	}
	w.Handle(m)
}

// Handle delivers m by email and websocket.
func (w *Worker) Handle(m Message) {
	if w.delivery != nil {
		w.delivery.Send(m.UserId, toPush(m))
	}

	if w.mailer == nil || m.Email == "" {
		return
	}
	if err := w.sendEmail(m); err != nil {
		w.logger.Warn("NOTIFICATION", "Email delivery failed", map[string]interface{}{
			"kind":    m.Kind,
			"user_id": m.UserId,
			"error":   err.Error(),
		})
	}
}

func (w *Worker) sendEmail(m Message) error {
	data := mailer.EmailData{
		Name:       m.Name,
		PlanName:   m.PlanName,
		Amount:     m.Amount,
		Currency:   m.Currency,
		Reference:  m.Reference,
		DailyLimit: m.DailyLimit,
		EndDate:    m.EndDate,
		Reason:     m.Reason,
	}

	switch m.Kind {
	case KindPaymentConfirmed:
		return w.mailer.SendPaymentConfirmed(m.Email, data)
	case KindPaymentFailed:
		return w.mailer.SendPaymentFailed(m.Email, data)
	case KindSubscriptionActivated:
		return w.mailer.SendSubscriptionActivated(m.Email, data)
	case KindSubscriptionExpired:
		return w.mailer.SendSubscriptionExpired(m.Email, data)
	}
	return fmt.Errorf("unknown notification kind %q", m.Kind)
}

func toPush(m Message) websocket.Push {
	p := websocket.Push{
		Type:       string(m.Kind),
		OccurredAt: m.OccurredAt,
		Data: map[string]interface{}{
			"reference": m.Reference,
			"plan_slug": m.PlanSlug,
		},
	}
	switch m.Kind {
	case KindPaymentConfirmed:
		p.Title = "Payment confirmed"
		p.Message = fmt.Sprintf("We received %s %s for the %s plan.", m.Amount, m.Currency, m.PlanName)
	case KindPaymentFailed:
		p.Title = "Payment failed"
		p.Message = m.Reason
	case KindSubscriptionActivated:
		p.Title = "Premium activated"
		p.Message = fmt.Sprintf("Your %s plan is active.", m.PlanName)
		if m.EndDate != nil {
			p.Data["end_date"] = m.EndDate
		}
	case KindSubscriptionExpired:
		p.Title = "Subscription expired"
		p.Message = fmt.Sprintf("Your %s plan has ended.", m.PlanName)
	}
	return p
}
