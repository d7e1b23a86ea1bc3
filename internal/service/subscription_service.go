package service

import (
	"context"
	"time"

	"placarcerto-be/internal/dto"
	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/internal/repository/specification"
	"placarcerto-be/internal/repository/unitofwork"
	"placarcerto-be/pkg/lock"
	"placarcerto-be/pkg/plans"

	"github.com/google/uuid"
)

type ISubscriptionService interface {
	GetMySubscription(ctx context.Context, userId uuid.UUID) (*dto.MySubscriptionResponse, error)
	GetEntitlement(ctx context.Context, userId uuid.UUID) (*cache.Entitlement, error)
	Cancel(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionResponse, error)
	History(ctx context.Context, userId uuid.UUID) ([]*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	uowFactory   unitofwork.RepositoryFactory
	catalog      *plans.Catalog
	locker       lock.Locker
	entitlements cache.EntitlementCache
	logger       logger.ILogger
	now          func() time.Time
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	catalog *plans.Catalog,
	locker lock.Locker,
	entitlements cache.EntitlementCache,
	log logger.ILogger,
) ISubscriptionService {
	return &subscriptionService{
		uowFactory:   uowFactory,
		catalog:      catalog,
		locker:       locker,
		entitlements: entitlements,
		logger:       log,
		now:          time.Now,
	}
}

func (s *subscriptionService) current(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, now time.Time, extra ...specification.Specification) (*entity.Subscription, error) {
	specs := append([]specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.ActiveAt{Now: now},
		specification.ExcludePlan{Slug: plans.FreemiumSlug},
		specification.OrderBy{Field: "start_date", Desc: true},
	}, extra...)
	return uow.SubscriptionRepository().FindOne(ctx, specs...)
}

func (s *subscriptionService) GetMySubscription(ctx context.Context, userId uuid.UUID) (*dto.MySubscriptionResponse, error) {
	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sub, err := s.current(ctx, uow, userId, now)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		free, _ := s.catalog.Get(plans.FreemiumSlug)
		return &dto.MySubscriptionResponse{
			Plan:       toPlanResponse(free),
			IsPremium:  false,
			DailyLimit: free.DailyAnalysisLimit,
		}, nil
	}

	res := &dto.MySubscriptionResponse{
		Subscription: toSubscriptionResponse(sub, s.catalog, now),
		IsPremium:    true,
		DailyLimit:   s.catalog.DailyLimit(sub.PlanSlug),
	}
	if plan, ok := s.catalog.Get(sub.PlanSlug); ok {
		res.Plan = toPlanResponse(plan)
	}
	return res, nil
}

// GetEntitlement reads through the cache; a miss is filled from the database.
func (s *subscriptionService) GetEntitlement(ctx context.Context, userId uuid.UUID) (*cache.Entitlement, error) {
	cached, err := s.entitlements.Get(ctx, userId)
	if err != nil {
		s.logger.Warn("SUBSCRIPTION", "Entitlement cache read failed", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
	if cached != nil {
		return cached, nil
	}

	now := s.now()
	sub, err := s.current(ctx, s.uowFactory.NewUnitOfWork(ctx), userId, now)
	if err != nil {
		return nil, err
	}

	e := cache.Entitlement{
		PlanSlug:   plans.FreemiumSlug,
		DailyLimit: s.catalog.DailyLimit(plans.FreemiumSlug),
	}
	if sub != nil {
		e = cache.Entitlement{
			PlanSlug:   sub.PlanSlug,
			IsPremium:  true,
			DailyLimit: s.catalog.DailyLimit(sub.PlanSlug),
			ExpiresAt:  sub.EndDate,
		}
	}
	if err := s.entitlements.Set(ctx, userId, e); err != nil {
		s.logger.Warn("SUBSCRIPTION", "Entitlement cache write failed", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
	return &e, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, userId uuid.UUID) (*dto.SubscriptionResponse, error) {
	release, err := s.locker.Acquire(ctx, lock.UserKey(userId.String()), lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	sub, err := s.current(ctx, uow, userId, now, specification.ForUpdate{})
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}

	sub.Status = entity.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	sub.AutoRenew = false
	sub.UpdatedAt = now
	if err := uow.SubscriptionRepository().Update(ctx, sub); err != nil {
		return nil, err
	}
	if _, _, err := syncPremium(ctx, uow, userId, now); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if err := s.entitlements.Delete(ctx, userId); err != nil {
		s.logger.Warn("SUBSCRIPTION", "Failed to clear entitlement cache", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
	s.logger.Info("SUBSCRIPTION", "Subscription cancelled", map[string]interface{}{
		"user_id":         userId,
		"subscription_id": sub.Id,
		"plan":            sub.PlanSlug,
	})
	return toSubscriptionResponse(sub, s.catalog, now), nil
}

func (s *subscriptionService) History(ctx context.Context, userId uuid.UUID) ([]*dto.SubscriptionResponse, error) {
	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	subs, err := uow.SubscriptionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 50},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		res = append(res, toSubscriptionResponse(sub, s.catalog, now))
	}
	return res, nil
}
