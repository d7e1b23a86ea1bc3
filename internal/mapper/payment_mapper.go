package mapper

import (
	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/model"

	"gorm.io/datatypes"
)

type PaymentMapper struct{}

func NewPaymentMapper() *PaymentMapper {
	return &PaymentMapper{}
}

func (m *PaymentMapper) ToEntity(p *model.Payment) *entity.Payment {
	if p == nil {
		return nil
	}
	meta := map[string]interface{}(p.Metadata)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return &entity.Payment{
		Id:                   p.Id,
		UserId:               p.UserId,
		SubscriptionId:       p.SubscriptionId,
		Amount:               p.Amount,
		Currency:             p.Currency,
		TransactionReference: p.TransactionReference,
		ProviderId:           p.ProviderId,
		Status:               entity.PaymentStatus(p.Status),
		PaymentMethod:        p.PaymentMethod,
		Metadata:             meta,
		CompletedAt:          p.CompletedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func (m *PaymentMapper) ToModel(p *entity.Payment) *model.Payment {
	if p == nil {
		return nil
	}
	return &model.Payment{
		Id:                   p.Id,
		UserId:               p.UserId,
		SubscriptionId:       p.SubscriptionId,
		Amount:               p.Amount,
		Currency:             p.Currency,
		TransactionReference: p.TransactionReference,
		ProviderId:           p.ProviderId,
		Status:               string(p.Status),
		PaymentMethod:        p.PaymentMethod,
		Metadata:             datatypes.JSONMap(p.Metadata),
		CompletedAt:          p.CompletedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
