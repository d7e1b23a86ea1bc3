package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	PlanSlug      string `json:"plan_slug" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=mpesa emola card"`
}

type PaymentResponse struct {
	Id                   uuid.UUID              `json:"id"`
	SubscriptionId       *uuid.UUID             `json:"subscription_id,omitempty"`
	Amount               decimal.Decimal        `json:"amount"`
	Currency             string                 `json:"currency"`
	TransactionReference string                 `json:"transaction_reference"`
	ProviderId           *string                `json:"paysuite_reference,omitempty"`
	Status               string                 `json:"status"`
	PaymentMethod        string                 `json:"payment_method"`
	PlanSlug             string                 `json:"plan_slug,omitempty"`
	CheckoutURL          string                 `json:"checkout_url,omitempty"`
	FailureReason        string                 `json:"failure_reason,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
	CompletedAt          *time.Time             `json:"completed_at,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

type CreatePaymentResponse struct {
	Payment      *PaymentResponse      `json:"payment"`
	Subscription *SubscriptionResponse `json:"subscription"`
	CheckoutURL  string                `json:"checkout_url"`
}

type CheckStatusResponse struct {
	Status         string                `json:"status"`
	Payment        *PaymentResponse      `json:"payment"`
	Subscription   *SubscriptionResponse `json:"subscription,omitempty"`
	PaysuiteStatus string                `json:"paysuite_status"`
	PollingEnabled bool                  `json:"polling_enabled"`
}
