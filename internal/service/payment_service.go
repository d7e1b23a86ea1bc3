// FILE: internal/service/payment_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"placarcerto-be/internal/dto"
	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/metrics"
	"placarcerto-be/internal/notification"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/internal/repository/contract"
	"placarcerto-be/internal/repository/specification"
	"placarcerto-be/internal/repository/unitofwork"
	"placarcerto-be/pkg/lock"
	"placarcerto-be/pkg/paysuite"
	"placarcerto-be/pkg/plans"

	"github.com/google/uuid"
)

const (
	// lockTTL outlives one gateway round trip.
	lockTTL = 45 * time.Second

	maxReferenceAttempts = 3

	ReasonGatewayFailure     = "gateway reported payment failure"
	ReasonExpiredUnconfirmed = "expired_unconfirmed"
)

// PaymentGateway is the part of the PaySuite client the reconciler needs.
type PaymentGateway interface {
	Submit(ctx context.Context, req paysuite.PaymentRequest) (*paysuite.Checkout, error)
	CheckStatus(ctx context.Context, id string) (*paysuite.StatusResult, error)
	VerifySignature(body []byte, signature string) bool
}

type IPaymentService interface {
	Initiate(ctx context.Context, userId uuid.UUID, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	ReceiveWebhook(ctx context.Context, body []byte, signature string) error
	CheckStatus(ctx context.Context, userId uuid.UUID, reference string) (*dto.CheckStatusResponse, error)
	Complete(ctx context.Context, reference string, paidAt *time.Time) error
	Fail(ctx context.Context, reference, reason string) error
	ExpireUnconfirmed(ctx context.Context, reference string) (ReapOutcome, error)
	ListPayments(ctx context.Context, userId uuid.UUID) ([]*dto.PaymentResponse, error)
}

type paymentService struct {
	uowFactory   unitofwork.RepositoryFactory
	catalog      *plans.Catalog
	gateway      PaymentGateway
	locker       lock.Locker
	entitlements cache.EntitlementCache
	notifier     notification.Sender
	metrics      metrics.PaymentMetrics
	logger       logger.ILogger

	now          func() time.Time
	newReference func(userId uuid.UUID) string
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	catalog *plans.Catalog,
	gateway PaymentGateway,
	locker lock.Locker,
	entitlements cache.EntitlementCache,
	notifier notification.Sender,
	paymentMetrics metrics.PaymentMetrics,
	log logger.ILogger,
) IPaymentService {
	return &paymentService{
		uowFactory:   uowFactory,
		catalog:      catalog,
		gateway:      gateway,
		locker:       locker,
		entitlements: entitlements,
		notifier:     notifier,
		metrics:      paymentMetrics,
		logger:       log,
		now:          time.Now,
		newReference: NewTransactionReference,
	}
}

// NewTransactionReference builds BET + 8 hex chars of the user id + 8 random hex chars.
func NewTransactionReference(userId uuid.UUID) string {
	owner := strings.ReplaceAll(userId.String(), "-", "")[:8]
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "BET" + strings.ToUpper(owner+random)
}

func normalizeMethod(method string) (string, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch method {
	case "":
		return entity.PaymentMethodMpesa, nil
	case entity.PaymentMethodMpesa, entity.PaymentMethodEmola, entity.PaymentMethodCard:
		return method, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, method)
}

func (s *paymentService) Initiate(ctx context.Context, userId uuid.UUID, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	plan, ok := s.catalog.Get(req.PlanSlug)
	if !ok || !plan.IsActive || !plan.IsPaid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlan, req.PlanSlug)
	}
	method, err := normalizeMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	sub, payment, err := s.createPending(ctx, userId, plan, method)
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentInitiated(plan.Slug, method)
	s.logger.Info("PAYMENT", "Payment created", map[string]interface{}{
		"reference": payment.TransactionReference,
		"user_id":   userId,
		"plan":      plan.Slug,
		"amount":    payment.Amount.String(),
	})

	checkout, err := s.gateway.Submit(ctx, paysuite.PaymentRequest{
		Amount:      payment.Amount,
		Reference:   payment.TransactionReference,
		Description: fmt.Sprintf("PlacarCerto %s", plan.Name),
		Method:      method,
	})

	// The caller may have gone away while the gateway was busy; bookkeeping still has to land.
	bgCtx := context.WithoutCancel(ctx)

	if err != nil {
		gwErr := &GatewayError{Kind: ErrGatewayUnavailable, Message: err.Error()}
		var se *paysuite.SubmitError
		if errors.As(err, &se) {
			gwErr.Message = se.Message
		}
		if paysuite.IsRejected(err) {
			gwErr.Kind = ErrGatewayRejected
		}
		kind := "unavailable"
		if gwErr.Kind == ErrGatewayRejected {
			kind = "rejected"
		}
		s.metrics.IncGatewayError(kind)
		s.logger.Error("PAYMENT", "Gateway submission failed", map[string]interface{}{
			"reference": payment.TransactionReference,
			"kind":      kind,
			"error":     err.Error(),
		})

		if _, ferr := s.fail(bgCtx, payment.TransactionReference, transition{
			source: "gateway",
			reason: gwErr.Message,
		}); ferr != nil {
			s.logger.Error("PAYMENT", "Failed to record gateway failure", map[string]interface{}{
				"reference": payment.TransactionReference,
				"error":     ferr.Error(),
			})
		}
		return nil, gwErr
	}

	updated, err := s.enrich(bgCtx, payment.TransactionReference, func(p *entity.Payment) {
		providerId := checkout.ProviderId
		p.ProviderId = &providerId
		p.SetMeta(entity.MetaCheckoutURL, checkout.CheckoutURL)
		p.SetMeta(entity.MetaGatewayResponse, checkout.Raw)
		p.SetMeta(entity.MetaGatewayStrategy, checkout.Strategy)
	})
	if err != nil {
		// The gateway accepted the payment; the webhook still finds it by reference.
		s.logger.Error("PAYMENT", "Failed to store gateway response", map[string]interface{}{
			"reference": payment.TransactionReference,
			"error":     err.Error(),
		})
		providerId := checkout.ProviderId
		payment.ProviderId = &providerId
		payment.SetMeta(entity.MetaCheckoutURL, checkout.CheckoutURL)
		updated = payment
	}

	return &dto.CreatePaymentResponse{
		Payment:      toPaymentResponse(updated),
		Subscription: toSubscriptionResponse(sub, s.catalog, s.now()),
		CheckoutURL:  checkout.CheckoutURL,
	}, nil
}

// createPending runs under the user lock so two purchases cannot both pass the duplicate check.
func (s *paymentService) createPending(ctx context.Context, userId uuid.UUID, plan plans.Plan, method string) (*entity.Subscription, *entity.Payment, error) {
	release, err := s.locker.Acquire(ctx, lock.UserKey(userId.String()), lockTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("lock user %s: %w", userId, err)
	}
	defer release()

	now := s.now()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	existing, err := uow.SubscriptionRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ActiveAt{Now: now},
		specification.ExcludePlan{Slug: plans.FreemiumSlug},
		specification.OrderBy{Field: "end_date", Desc: true},
	)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, &DuplicateSubscriptionError{Subscription: toSubscriptionResponse(existing, s.catalog, now)}
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	sub := &entity.Subscription{
		Id:         uuid.New(),
		UserId:     userId,
		PlanSlug:   plan.Slug,
		Status:     entity.SubscriptionStatusPending,
		StartDate:  now,
		AutoRenew:  true,
		AmountPaid: plan.Price,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uow.SubscriptionRepository().Create(ctx, sub); err != nil {
		return nil, nil, fmt.Errorf("create subscription: %w", err)
	}

	subId := sub.Id
	payment := &entity.Payment{
		Id:             uuid.New(),
		UserId:         userId,
		SubscriptionId: &subId,
		Amount:         plan.Price,
		Currency:       entity.DefaultCurrency,
		Status:         entity.PaymentStatusPending,
		PaymentMethod:  method,
		Metadata: map[string]interface{}{
			entity.MetaPlan:     plan.Slug,
			entity.MetaPlanName: plan.Name,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		payment.TransactionReference = s.newReference(userId)
		err = uow.PaymentRepository().Create(ctx, payment)
		if err == nil {
			break
		}
		if !errors.Is(err, contract.ErrDuplicateReference) || attempt == maxReferenceAttempts {
			return nil, nil, fmt.Errorf("create payment: %w", err)
		}
		s.logger.Warn("PAYMENT", "Reference collision, regenerating", map[string]interface{}{
			"reference": payment.TransactionReference,
			"attempt":   attempt,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}
	return sub, payment, nil
}

func (s *paymentService) ReceiveWebhook(ctx context.Context, body []byte, signature string) error {
	if signature != "" && !s.gateway.VerifySignature(body, signature) {
		s.metrics.IncWebhookReceived("invalid_signature")
		s.logger.Warn("WEBHOOK", "Signature mismatch", map[string]interface{}{"size": len(body)})
		return ErrInvalidSignature
	}
	if signature == "" {
		s.logger.Warn("WEBHOOK", "Accepting unsigned webhook", nil)
	}

	ev, err := paysuite.ParseWebhook(body)
	if err != nil {
		s.metrics.IncWebhookReceived("malformed")
		return fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	record := func(p *entity.Payment) {
		p.SetMeta(entity.MetaWebhookData, ev.Payload)
		if ev.TransactionId != "" {
			p.SetMeta(entity.MetaTransactionId, ev.TransactionId)
		}
	}

	s.logger.Info("WEBHOOK", "Webhook received", map[string]interface{}{
		"event":     ev.Event,
		"reference": ev.Reference,
	})

	var outcome string
	switch ev.Outcome {
	case paysuite.WebhookSuccess:
		_, err = s.complete(ctx, ev.Reference, transition{source: "webhook", paidAt: ev.PaidAt, enrich: record})
		outcome = "success"
	case paysuite.WebhookFailed:
		_, err = s.fail(ctx, ev.Reference, transition{source: "webhook", reason: ReasonGatewayFailure, notify: true, enrich: record})
		outcome = "failed"
	default:
		_, err = s.enrich(ctx, ev.Reference, record)
		outcome = "ignored"
	}
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		outcome = "unknown_reference"
	case err != nil:
		outcome = "error"
	}
	s.metrics.IncWebhookReceived(outcome)
	return err
}

func (s *paymentService) CheckStatus(ctx context.Context, userId uuid.UUID, reference string) (*dto.CheckStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	payment, err := uow.PaymentRepository().FindOne(ctx,
		specification.ByReference{Reference: reference},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	gatewayStatus := ""
	if payment.Status == entity.PaymentStatusCompleted {
		gatewayStatus = paysuite.StatusCompleted
	} else {
		st, err := s.gateway.CheckStatus(ctx, payment.GatewayLookupId())
		switch {
		case errors.Is(err, paysuite.ErrWebhookOnly):
			s.logger.Debug("PAYMENT", "Status polling not available, waiting for webhook", map[string]interface{}{"reference": reference})
		case err != nil:
			s.logger.Warn("PAYMENT", "Gateway status query failed", map[string]interface{}{
				"reference": reference,
				"error":     err.Error(),
			})
		default:
			gatewayStatus = st.Status
			switch {
			case st.Status == paysuite.StatusCompleted:
				payment, err = s.complete(ctx, reference, transition{source: "status_check", paidAt: st.PaidAt})
			case st.Status == paysuite.StatusFailed && payment.Status == entity.PaymentStatusPending:
				payment, err = s.fail(ctx, reference, transition{source: "status_check", reason: ReasonGatewayFailure, notify: true})
			}
			if err != nil {
				return nil, err
			}
		}
	}

	res := &dto.CheckStatusResponse{
		Status:         string(payment.Status),
		Payment:        toPaymentResponse(payment),
		PaysuiteStatus: gatewayStatus,
		PollingEnabled: true,
	}
	if payment.SubscriptionId != nil {
		sub, err := s.uowFactory.NewUnitOfWork(ctx).SubscriptionRepository().FindOne(ctx, specification.ByID{ID: *payment.SubscriptionId})
		if err != nil {
			return nil, err
		}
		if sub != nil {
			res.Subscription = toSubscriptionResponse(sub, s.catalog, s.now())
		}
	}
	return res, nil
}

func (s *paymentService) Complete(ctx context.Context, reference string, paidAt *time.Time) error {
	_, err := s.complete(ctx, reference, transition{source: "manual", paidAt: paidAt})
	return err
}

func (s *paymentService) Fail(ctx context.Context, reference, reason string) error {
	_, err := s.fail(ctx, reference, transition{source: "manual", reason: reason, notify: true})
	return err
}

// ReapOutcome is what ExpireUnconfirmed did with a stale pending payment.
type ReapOutcome string

const (
	ReapFailed    ReapOutcome = "failed"
	ReapCompleted ReapOutcome = "completed"
	// ReapSkipped: already settled, or the gateway could not be asked.
	ReapSkipped ReapOutcome = "skipped"
)

// ExpireUnconfirmed asks the gateway about a stale pending payment before giving up on it.
// A payment the gateway reports paid is completed; webhook-only gateways cannot be asked,
// so their stale payments fail as before.
func (s *paymentService) ExpireUnconfirmed(ctx context.Context, reference string) (ReapOutcome, error) {
	payment, err := s.uowFactory.NewUnitOfWork(ctx).PaymentRepository().FindOne(ctx,
		specification.ByReference{Reference: reference},
	)
	if err != nil {
		return ReapSkipped, err
	}
	if payment == nil {
		return ReapSkipped, ErrPaymentNotFound
	}
	if payment.Status.IsTerminal() {
		return ReapSkipped, nil
	}

	st, err := s.gateway.CheckStatus(ctx, payment.GatewayLookupId())
	switch {
	case errors.Is(err, paysuite.ErrWebhookOnly):
	case err != nil:
		s.logger.Warn("SWEEP", "Gateway status query failed, leaving payment pending", map[string]interface{}{
			"reference": reference,
			"error":     err.Error(),
		})
		return ReapSkipped, nil
	case st.Status == paysuite.StatusCompleted:
		done, err := s.complete(ctx, reference, transition{source: "sweep", paidAt: st.PaidAt})
		if err != nil {
			return ReapSkipped, err
		}
		if done.Status != entity.PaymentStatusCompleted {
			return ReapSkipped, nil
		}
		return ReapCompleted, nil
	}

	failed, err := s.fail(ctx, reference, transition{source: "expired", reason: ReasonExpiredUnconfirmed, notify: true})
	if err != nil {
		return ReapSkipped, err
	}
	if failed.Status != entity.PaymentStatusFailed || failed.MetaString(entity.MetaFailureReason) != ReasonExpiredUnconfirmed {
		return ReapSkipped, nil
	}
	return ReapFailed, nil
}

func (s *paymentService) ListPayments(ctx context.Context, userId uuid.UUID) ([]*dto.PaymentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	payments, err := uow.PaymentRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 100},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		res = append(res, toPaymentResponse(p))
	}
	return res, nil
}
