package service

import (
	"errors"

	"placarcerto-be/internal/dto"
)

var (
	ErrInvalidPlan                 = errors.New("invalid plan")
	ErrPlanNotFound                = errors.New("plan not found")
	ErrInvalidPaymentMethod        = errors.New("invalid payment method")
	ErrUserNotFound                = errors.New("user not found")
	ErrDuplicateActiveSubscription = errors.New("user already has an active subscription")
	ErrGatewayUnavailable          = errors.New("payment gateway unavailable")
	ErrGatewayRejected             = errors.New("payment rejected by gateway")
	ErrInvalidSignature            = errors.New("invalid webhook signature")
	ErrMalformedWebhook            = errors.New("malformed webhook payload")
	ErrPaymentNotFound             = errors.New("payment not found")
	ErrNoActiveSubscription        = errors.New("no active subscription")
)

// GatewayError carries the provider message verbatim. Kind is ErrGatewayUnavailable
// or ErrGatewayRejected.
type GatewayError struct {
	Kind    error
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Kind
}

// DuplicateSubscriptionError returns the subscription that blocked a new purchase.
type DuplicateSubscriptionError struct {
	Subscription *dto.SubscriptionResponse
}

func (e *DuplicateSubscriptionError) Error() string {
	return ErrDuplicateActiveSubscription.Error()
}

func (e *DuplicateSubscriptionError) Unwrap() error {
	return ErrDuplicateActiveSubscription
}
