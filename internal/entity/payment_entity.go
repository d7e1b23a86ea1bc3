package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

const (
	PaymentMethodMpesa = "mpesa"
	PaymentMethodEmola = "emola"
	PaymentMethodCard  = "card"

	DefaultCurrency = "MZN"
)

// Metadata keys written by the reconciler.
const (
	MetaPlan            = "plan"
	MetaPlanName        = "plan_name"
	MetaCheckoutURL     = "checkout_url"
	MetaGatewayResponse = "gateway_response"
	MetaGatewayStrategy = "gateway_strategy"
	MetaFailureReason   = "failure_reason"
	MetaWebhookData     = "webhook_data"
	MetaTransactionId   = "paysuite_transaction_id"
)

type Payment struct {
	Id                   uuid.UUID
	UserId               uuid.UUID
	SubscriptionId       *uuid.UUID
	Amount               decimal.Decimal
	Currency             string
	TransactionReference string
	ProviderId           *string
	Status               PaymentStatus
	PaymentMethod        string
	Metadata             map[string]interface{}
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p *Payment) SetMeta(key string, value interface{}) {
	if p.Metadata == nil {
		p.Metadata = map[string]interface{}{}
	}
	p.Metadata[key] = value
}

func (p *Payment) MetaString(key string) string {
	if v, ok := p.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// GatewayLookupId is the id used to ask the gateway about this payment.
func (p *Payment) GatewayLookupId() string {
	if p.ProviderId != nil && *p.ProviderId != "" {
		return *p.ProviderId
	}
	return p.TransactionReference
}
