package service

import (
	"time"

	"placarcerto-be/internal/dto"
	"placarcerto-be/internal/entity"
	"placarcerto-be/pkg/plans"
)

func toPaymentResponse(p *entity.Payment) *dto.PaymentResponse {
	if p == nil {
		return nil
	}
	return &dto.PaymentResponse{
		Id:                   p.Id,
		SubscriptionId:       p.SubscriptionId,
		Amount:               p.Amount,
		Currency:             p.Currency,
		TransactionReference: p.TransactionReference,
		ProviderId:           p.ProviderId,
		Status:               string(p.Status),
		PaymentMethod:        p.PaymentMethod,
		PlanSlug:             p.MetaString(entity.MetaPlan),
		CheckoutURL:          p.MetaString(entity.MetaCheckoutURL),
		FailureReason:        p.MetaString(entity.MetaFailureReason),
		CompletedAt:          p.CompletedAt,
		CreatedAt:            p.CreatedAt,
	}
}

func toSubscriptionResponse(sub *entity.Subscription, catalog *plans.Catalog, now time.Time) *dto.SubscriptionResponse {
	if sub == nil {
		return nil
	}
	return &dto.SubscriptionResponse{
		Id:            sub.Id,
		PlanSlug:      sub.PlanSlug,
		PlanName:      catalog.Name(sub.PlanSlug),
		Status:        string(sub.Status),
		StartDate:     sub.StartDate,
		EndDate:       sub.EndDate,
		AutoRenew:     sub.AutoRenew,
		AmountPaid:    sub.AmountPaid,
		DailyLimit:    catalog.DailyLimit(sub.PlanSlug),
		DaysRemaining: sub.DaysRemaining(now),
		CancelledAt:   sub.CancelledAt,
		CreatedAt:     sub.CreatedAt,
	}
}

func toPlanResponse(p plans.Plan) *dto.PlanResponse {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return &dto.PlanResponse{
		Slug:               p.Slug,
		Name:               p.Name,
		Price:              p.Price,
		Currency:           entity.DefaultCurrency,
		DailyAnalysisLimit: p.DailyAnalysisLimit,
		DurationDays:       p.DurationDays,
		TrialDays:          p.TrialDays,
		Savings:            p.Savings,
		Description:        p.Description,
		Features:           features,
		Popular:            p.Popular,
	}
}
