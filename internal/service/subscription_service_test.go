package service

import (
	"context"
	"testing"
	"time"

	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/pkg/plans"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) subscriptions() *subscriptionService {
	svc := NewSubscriptionService(&fakeFactory{store: f.store}, f.catalog, f.locker, f.cache, logger.NewNopLogger()).(*subscriptionService)
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestGetMySubscriptionFallsBackToFreemium(t *testing.T) {
	f := newFixture(t)

	res, err := f.subscriptions().GetMySubscription(context.Background(), f.user.Id)

	require.NoError(t, err)
	assert.Nil(t, res.Subscription)
	assert.False(t, res.IsPremium)
	assert.Equal(t, plans.FreemiumSlug, res.Plan.Slug)
	assert.Equal(t, f.catalog.DailyLimit(plans.FreemiumSlug), res.DailyLimit)
}

func TestGetMySubscriptionAfterActivation(t *testing.T) {
	f := newFixture(t)
	ref := f.initiate(t, "vip").Payment.TransactionReference
	require.NoError(t, f.svc.Complete(context.Background(), ref, nil))

	res, err := f.subscriptions().GetMySubscription(context.Background(), f.user.Id)

	require.NoError(t, err)
	require.NotNil(t, res.Subscription)
	assert.True(t, res.IsPremium)
	assert.Equal(t, "vip", res.Subscription.PlanSlug)
	assert.Equal(t, f.catalog.DailyLimit("vip"), res.DailyLimit)
	assert.Equal(t, 90, res.Subscription.DaysRemaining)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture(t)
	ref := f.initiate(t, "pro").Payment.TransactionReference
	require.NoError(t, f.svc.Complete(context.Background(), ref, nil))
	svc := f.subscriptions()

	res, err := svc.Cancel(context.Background(), f.user.Id)

	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.Status)
	assert.False(t, res.AutoRenew)
	require.NotNil(t, res.CancelledAt)

	user := f.store.user(f.user.Id)
	assert.False(t, user.IsPremium)
	assert.Nil(t, user.PremiumUntil)

	cached, err := f.cache.Get(context.Background(), f.user.Id)
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = svc.Cancel(context.Background(), f.user.Id)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestCancelWithoutSubscription(t *testing.T) {
	f := newFixture(t)

	_, err := f.subscriptions().Cancel(context.Background(), f.user.Id)

	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestGetEntitlementReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	f.activeSub("starter", f.now.Add(5*24*time.Hour))
	svc := f.subscriptions()

	first, err := svc.GetEntitlement(context.Background(), f.user.Id)
	require.NoError(t, err)
	assert.Equal(t, "starter", first.PlanSlug)
	assert.True(t, first.IsPremium)
	assert.Equal(t, 15, first.DailyLimit)

	// a cached entry wins over the database
	require.NoError(t, f.cache.Set(context.Background(), f.user.Id, cache.Entitlement{PlanSlug: "vip", IsPremium: true, DailyLimit: 80}))
	second, err := svc.GetEntitlement(context.Background(), f.user.Id)
	require.NoError(t, err)
	assert.Equal(t, "vip", second.PlanSlug)
}

func TestGetEntitlementFreeUser(t *testing.T) {
	f := newFixture(t)

	e, err := f.subscriptions().GetEntitlement(context.Background(), f.user.Id)

	require.NoError(t, err)
	assert.Equal(t, plans.FreemiumSlug, e.PlanSlug)
	assert.False(t, e.IsPremium)
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.initiate(t, "starter")
	require.NoError(t, f.svc.Fail(context.Background(), first.Payment.TransactionReference, "declined"))
	f.now = f.now.Add(time.Minute)
	second := f.initiate(t, "pro")

	history, err := f.subscriptions().History(context.Background(), f.user.Id)

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.Subscription.Id, history[0].Id)
	assert.Equal(t, string(entity.SubscriptionStatusCancelled), history[1].Status)
}

func TestPlanService(t *testing.T) {
	svc := NewPlanService(plans.Default())
	ctx := context.Background()

	active, err := svc.GetActivePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, plans.FreemiumSlug, active[0].Slug)

	premium, err := svc.GetPremiumPlans(ctx)
	require.NoError(t, err)
	for i, p := range premium {
		assert.True(t, p.Price.IsPositive(), p.Slug)
		if i > 0 {
			assert.True(t, premium[i-1].Price.LessThanOrEqual(p.Price))
		}
	}

	pro, err := svc.GetPlan(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, 40, pro.DailyAnalysisLimit)
	assert.Equal(t, "MZN", pro.Currency)

	_, err = svc.GetPlan(ctx, "gold")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}
