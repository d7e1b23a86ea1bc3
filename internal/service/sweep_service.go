package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/metrics"
	"placarcerto-be/internal/notification"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/internal/repository/specification"
	"placarcerto-be/internal/repository/unitofwork"
	"placarcerto-be/pkg/lock"
	"placarcerto-be/pkg/plans"
)

type ISweepService interface {
	// ExpireSubscriptions closes every paid subscription whose end date is at or before now.
	ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
	// ReapStalePayments settles pending payments older than maxAge: completed when the gateway
	// reports them paid, failed otherwise.
	ReapStalePayments(ctx context.Context, now time.Time, maxAge time.Duration) (ReapSummary, error)
}

// StalePaymentResolver is satisfied by IPaymentService.
type StalePaymentResolver interface {
	ExpireUnconfirmed(ctx context.Context, reference string) (ReapOutcome, error)
}

type ReapSummary struct {
	Candidates int
	Failed     int
	Completed  int
	Skipped    int
}

type sweepService struct {
	uowFactory   unitofwork.RepositoryFactory
	catalog      *plans.Catalog
	payments     StalePaymentResolver
	locker       lock.Locker
	entitlements cache.EntitlementCache
	notifier     notification.Sender
	metrics      metrics.PaymentMetrics
	logger       logger.ILogger
}

func NewSweepService(
	uowFactory unitofwork.RepositoryFactory,
	catalog *plans.Catalog,
	payments StalePaymentResolver,
	locker lock.Locker,
	entitlements cache.EntitlementCache,
	notifier notification.Sender,
	paymentMetrics metrics.PaymentMetrics,
	log logger.ILogger,
) ISweepService {
	return &sweepService{
		uowFactory:   uowFactory,
		catalog:      catalog,
		payments:     payments,
		locker:       locker,
		entitlements: entitlements,
		notifier:     notifier,
		metrics:      paymentMetrics,
		logger:       log,
	}
}

func (s *sweepService) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	due, err := uow.SubscriptionRepository().FindAll(ctx,
		specification.EndedBy{Now: now},
		specification.ExcludePlan{Slug: plans.FreemiumSlug},
		specification.OrderBy{Field: "end_date"},
	)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range due {
		ok, err := s.expireOne(ctx, sub, now)
		if err != nil {
			return expired, fmt.Errorf("expire subscription %s: %w", sub.Id, err)
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		s.metrics.IncSubscriptionsExpired(expired)
	}
	s.logger.Info("SWEEP", "Subscription expiry finished", map[string]interface{}{
		"due":     len(due),
		"expired": expired,
	})
	return expired, nil
}

// expireOne re-checks the row under the user lock; a concurrent cancel or renewal wins.
func (s *sweepService) expireOne(ctx context.Context, candidate *entity.Subscription, now time.Time) (bool, error) {
	release, err := s.locker.Acquire(ctx, lock.UserKey(candidate.UserId.String()), lockTTL)
	if err != nil {
		return false, err
	}
	defer release()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	sub, err := uow.SubscriptionRepository().FindOne(ctx,
		specification.ByID{ID: candidate.Id},
		specification.EndedBy{Now: now},
		specification.ForUpdate{},
	)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}

	sub.Status = entity.SubscriptionStatusExpired
	sub.UpdatedAt = now
	if err := uow.SubscriptionRepository().Update(ctx, sub); err != nil {
		return false, err
	}
	stillPremium, _, err := syncPremium(ctx, uow, sub.UserId, now)
	if err != nil {
		return false, err
	}
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: sub.UserId})
	if err != nil {
		return false, err
	}
	if err := uow.Commit(); err != nil {
		return false, err
	}

	if !stillPremium {
		if err := s.entitlements.Delete(ctx, sub.UserId); err != nil {
			s.logger.Warn("SWEEP", "Failed to clear entitlement cache", map[string]interface{}{
				"user_id": sub.UserId,
				"error":   err.Error(),
			})
		}
	}

	msg := notification.Message{
		Kind:     notification.KindSubscriptionExpired,
		UserId:   sub.UserId,
		PlanSlug: sub.PlanSlug,
		PlanName: s.catalog.Name(sub.PlanSlug),
		EndDate:  sub.EndDate,
	}
	if user != nil {
		msg.Email = user.Email
		msg.Name = user.DisplayName()
	}
	s.notifier.Send(ctx, msg)
	return true, nil
}

func (s *sweepService) ReapStalePayments(ctx context.Context, now time.Time, maxAge time.Duration) (ReapSummary, error) {
	var sum ReapSummary
	if maxAge <= 0 {
		return sum, fmt.Errorf("max age must be positive, got %s", maxAge)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	stale, err := uow.PaymentRepository().FindAll(ctx,
		specification.ByStatus{Status: string(entity.PaymentStatusPending)},
		specification.CreatedBefore{Time: now.Add(-maxAge)},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return sum, err
	}

	sum.Candidates = len(stale)
	for _, p := range stale {
		outcome, err := s.payments.ExpireUnconfirmed(ctx, p.TransactionReference)
		if errors.Is(err, ErrPaymentNotFound) {
			sum.Skipped++
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("reap payment %s: %w", p.TransactionReference, err)
		}
		switch outcome {
		case ReapFailed:
			sum.Failed++
		case ReapCompleted:
			sum.Completed++
		default:
			sum.Skipped++
		}
	}

	s.logger.Info("SWEEP", "Stale payment reaping finished", map[string]interface{}{
		"candidates": sum.Candidates,
		"failed":     sum.Failed,
		"completed":  sum.Completed,
		"skipped":    sum.Skipped,
		"max_age":    maxAge.String(),
	})
	return sum, nil
}
