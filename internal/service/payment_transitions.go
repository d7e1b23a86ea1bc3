package service

import (
	"context"
	"fmt"
	"time"

	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/notification"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/internal/repository/specification"
	"placarcerto-be/internal/repository/unitofwork"
	"placarcerto-be/pkg/lock"
	"placarcerto-be/pkg/plans"

	"github.com/google/uuid"
)

// transition describes one confirmation attempt, whoever reported it.
type transition struct {
	source string // metrics label: webhook, status_check, sweep, gateway, manual, expired
	paidAt *time.Time
	reason string
	notify bool
	// enrich runs on the locked row whether or not the status changes.
	enrich func(p *entity.Payment)
}

// lockedPayment takes the payment lock, opens a transaction and re-reads the row FOR UPDATE.
// The caller must call done.
func (s *paymentService) lockedPayment(ctx context.Context, reference string) (uow unitofwork.UnitOfWork, payment *entity.Payment, done func(), err error) {
	release, err := s.locker.Acquire(ctx, lock.PaymentKey(reference), lockTTL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("lock payment %s: %w", reference, err)
	}

	uow = s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		release()
		return nil, nil, nil, err
	}
	done = func() {
		uow.Rollback()
		release()
	}

	payment, err = uow.PaymentRepository().FindOne(ctx,
		specification.ByReference{Reference: reference},
		specification.ForUpdate{},
	)
	if err != nil {
		done()
		return nil, nil, nil, err
	}
	if payment == nil {
		done()
		return nil, nil, nil, ErrPaymentNotFound
	}
	return uow, payment, done, nil
}

// enrich updates metadata only.
func (s *paymentService) enrich(ctx context.Context, reference string, fn func(p *entity.Payment)) (*entity.Payment, error) {
	uow, payment, done, err := s.lockedPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer done()

	fn(payment)
	payment.UpdatedAt = s.now()
	if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) planFor(payment *entity.Payment, sub *entity.Subscription) plans.Plan {
	slug := payment.MetaString(entity.MetaPlan)
	if slug == "" && sub != nil {
		slug = sub.PlanSlug
	}
	plan, ok := s.catalog.Get(slug)
	if !ok {
		plan = plans.Plan{Slug: slug, Name: slug}
	}
	return plan
}

// complete moves a pending payment to completed and activates its subscription.
// Terminal payments are left alone apart from t.enrich.
func (s *paymentService) complete(ctx context.Context, reference string, t transition) (*entity.Payment, error) {
	uow, payment, done, err := s.lockedPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer done()

	now := s.now()

	if payment.Status.IsTerminal() {
		if t.enrich == nil {
			return payment, nil
		}
		t.enrich(payment)
		payment.UpdatedAt = now
		if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
			return nil, err
		}
		return payment, uow.Commit()
	}

	completedAt := now
	if t.paidAt != nil {
		completedAt = *t.paidAt
	}
	payment.Status = entity.PaymentStatusCompleted
	payment.CompletedAt = &completedAt
	payment.UpdatedAt = now
	if t.enrich != nil {
		t.enrich(payment)
	}
	if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
		return nil, err
	}

	var sub *entity.Subscription
	if payment.SubscriptionId != nil {
		sub, err = uow.SubscriptionRepository().FindOne(ctx, specification.ByID{ID: *payment.SubscriptionId}, specification.ForUpdate{})
		if err != nil {
			return nil, err
		}
	}
	plan := s.planFor(payment, sub)

	activated := false
	if sub != nil && sub.Status == entity.SubscriptionStatusPending {
		if err := s.expireStale(ctx, uow, payment.UserId, now); err != nil {
			return nil, err
		}
		from, unlimited, err := s.supersedeLive(ctx, uow, sub, now)
		if err != nil {
			return nil, err
		}
		sub.Status = entity.SubscriptionStatusActive
		sub.StartDate = now
		switch {
		case unlimited:
			sub.EndDate = nil
		case sub.EndDate == nil:
			sub.EndDate = plan.EndFrom(from)
		}
		sub.UpdatedAt = now
		if err := uow.SubscriptionRepository().Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("activate subscription: %w", err)
		}
		activated = true
	}

	if _, _, err := syncPremium(ctx, uow, payment.UserId, now); err != nil {
		return nil, err
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: payment.UserId})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("PAYMENT", "Payment completed", map[string]interface{}{
		"reference": reference,
		"source":    t.source,
		"activated": activated,
	})
	s.metrics.IncPaymentCompleted(plan.Slug, t.source)
	s.metrics.ObservePaymentAmount(payment.Amount.InexactFloat64(), plan.Slug)

	s.notifier.Send(ctx, paymentMessage(notification.KindPaymentConfirmed, user, payment, plan))
	if activated {
		s.cacheEntitlement(ctx, payment.UserId, plan, sub.EndDate)
		msg := paymentMessage(notification.KindSubscriptionActivated, user, payment, plan)
		msg.EndDate = sub.EndDate
		s.notifier.Send(ctx, msg)
	}
	return payment, nil
}

// fail moves a pending payment to failed and cancels a still-pending subscription.
func (s *paymentService) fail(ctx context.Context, reference string, t transition) (*entity.Payment, error) {
	uow, payment, done, err := s.lockedPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer done()

	now := s.now()
	if t.enrich != nil {
		t.enrich(payment)
	}

	if payment.Status.IsTerminal() {
		if t.enrich == nil {
			return payment, nil
		}
		payment.UpdatedAt = now
		if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
			return nil, err
		}
		return payment, uow.Commit()
	}

	payment.Status = entity.PaymentStatusFailed
	payment.SetMeta(entity.MetaFailureReason, t.reason)
	payment.UpdatedAt = now
	if err := uow.PaymentRepository().Update(ctx, payment); err != nil {
		return nil, err
	}

	var sub *entity.Subscription
	if payment.SubscriptionId != nil {
		sub, err = uow.SubscriptionRepository().FindOne(ctx, specification.ByID{ID: *payment.SubscriptionId}, specification.ForUpdate{})
		if err != nil {
			return nil, err
		}
	}
	if sub != nil && sub.Status == entity.SubscriptionStatusPending {
		sub.Status = entity.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.AutoRenew = false
		sub.UpdatedAt = now
		if err := uow.SubscriptionRepository().Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("cancel subscription: %w", err)
		}
	}

	var user *entity.User
	if t.notify {
		if user, err = uow.UserRepository().FindOne(ctx, specification.ByID{ID: payment.UserId}); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	plan := s.planFor(payment, sub)
	s.logger.Info("PAYMENT", "Payment failed", map[string]interface{}{
		"reference": reference,
		"source":    t.source,
		"reason":    t.reason,
	})
	s.metrics.IncPaymentFailed(plan.Slug, t.source)

	if t.notify {
		msg := paymentMessage(notification.KindPaymentFailed, user, payment, plan)
		msg.Reason = t.reason
		s.notifier.Send(ctx, msg)
	}
	return payment, nil
}

// expireStale closes active rows of the user whose end date has passed.
func (s *paymentService) expireStale(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, now time.Time) error {
	stale, err := uow.SubscriptionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.EndedBy{Now: now},
		specification.ExcludePlan{Slug: plans.FreemiumSlug},
	)
	if err != nil {
		return err
	}
	for _, old := range stale {
		old.Status = entity.SubscriptionStatusExpired
		old.UpdatedAt = now
		if err := uow.SubscriptionRepository().Update(ctx, old); err != nil {
			return fmt.Errorf("expire subscription %s: %w", old.Id, err)
		}
	}
	return nil
}

// supersedeLive closes the user's other live paid subscriptions so sub can hold the single active slot.
// Their remaining time carries over: from is where sub's term starts counting, and unlimited
// reports that one of them never ends.
func (s *paymentService) supersedeLive(ctx context.Context, uow unitofwork.UnitOfWork, sub *entity.Subscription, now time.Time) (from time.Time, unlimited bool, err error) {
	live, err := uow.SubscriptionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: sub.UserId},
		specification.ActiveAt{Now: now},
		specification.ExcludePlan{Slug: plans.FreemiumSlug},
		specification.ForUpdate{},
	)
	if err != nil {
		return now, false, err
	}

	from = now
	for _, old := range live {
		if old.Id == sub.Id {
			continue
		}
		if old.EndDate == nil {
			unlimited = true
		} else if old.EndDate.After(from) {
			from = *old.EndDate
		}
		old.Status = entity.SubscriptionStatusExpired
		old.EndDate = &now
		old.UpdatedAt = now
		if err := uow.SubscriptionRepository().Update(ctx, old); err != nil {
			return now, false, fmt.Errorf("supersede subscription %s: %w", old.Id, err)
		}
		s.logger.Info("PAYMENT", "Subscription superseded by a newer purchase", map[string]interface{}{
			"user_id":    sub.UserId,
			"superseded": old.Id,
			"plan":       old.PlanSlug,
			"by":         sub.Id,
		})
	}
	return from, unlimited, nil
}

// syncPremium recomputes the user's premium flag from their live paid subscriptions.
func syncPremium(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, now time.Time) (bool, *time.Time, error) {
	live, err := uow.SubscriptionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ActiveAt{Now: now},
		specification.ExcludePlan{Slug: plans.FreemiumSlug},
	)
	if err != nil {
		return false, nil, err
	}

	var until *time.Time
	for _, sub := range live {
		if sub.EndDate != nil && (until == nil || sub.EndDate.After(*until)) {
			end := *sub.EndDate
			until = &end
		}
	}
	isPremium := len(live) > 0
	if err := uow.UserRepository().UpdatePremium(ctx, userId, isPremium, until); err != nil {
		return false, nil, fmt.Errorf("update premium flag: %w", err)
	}
	return isPremium, until, nil
}

func (s *paymentService) cacheEntitlement(ctx context.Context, userId uuid.UUID, plan plans.Plan, end *time.Time) {
	err := s.entitlements.Set(ctx, userId, cache.Entitlement{
		PlanSlug:   plan.Slug,
		IsPremium:  true,
		DailyLimit: plan.DailyAnalysisLimit,
		ExpiresAt:  end,
	})
	if err != nil {
		s.logger.Warn("PAYMENT", "Failed to cache entitlement", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
}

// paymentMessage fills the fields every payment notification shares. user may be nil.
func paymentMessage(kind notification.Kind, user *entity.User, payment *entity.Payment, plan plans.Plan) notification.Message {
	msg := notification.Message{
		Kind:       kind,
		UserId:     payment.UserId,
		PlanSlug:   plan.Slug,
		PlanName:   plan.Name,
		Amount:     payment.Amount.StringFixed(2),
		Currency:   payment.Currency,
		Reference:  payment.TransactionReference,
		DailyLimit: plan.DailyAnalysisLimit,
	}
	if user != nil {
		msg.Email = user.Email
		msg.Name = user.DisplayName()
	}
	return msg
}
