package mapper

import (
	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/model"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	return &entity.Subscription{
		Id:          s.Id,
		UserId:      s.UserId,
		PlanSlug:    s.PlanSlug,
		Status:      entity.SubscriptionStatus(s.Status),
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		AutoRenew:   s.AutoRenew,
		AmountPaid:  s.AmountPaid,
		CancelledAt: s.CancelledAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.Subscription {
	if s == nil {
		return nil
	}
	return &model.Subscription{
		Id:          s.Id,
		UserId:      s.UserId,
		PlanSlug:    s.PlanSlug,
		Status:      string(s.Status),
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		AutoRenew:   s.AutoRenew,
		AmountPaid:  s.AmountPaid,
		CancelledAt: s.CancelledAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
