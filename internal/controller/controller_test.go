package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"placarcerto-be/internal/dto"
	"placarcerto-be/internal/pkg/logger"
	"placarcerto-be/internal/pkg/serverutils"
	"placarcerto-be/internal/repository/cache"
	"placarcerto-be/internal/service"
	"placarcerto-be/pkg/plans"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubPayments struct {
	initiate func(userId uuid.UUID, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	webhook  func(body []byte, signature string) error
	check    func(userId uuid.UUID, reference string) (*dto.CheckStatusResponse, error)
}

func (s *stubPayments) Initiate(_ context.Context, userId uuid.UUID, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	return s.initiate(userId, req)
}

func (s *stubPayments) ReceiveWebhook(_ context.Context, body []byte, signature string) error {
	return s.webhook(body, signature)
}

func (s *stubPayments) CheckStatus(_ context.Context, userId uuid.UUID, reference string) (*dto.CheckStatusResponse, error) {
	return s.check(userId, reference)
}

func (s *stubPayments) Complete(context.Context, string, *time.Time) error { return nil }

func (s *stubPayments) Fail(context.Context, string, string) error { return nil }

func (s *stubPayments) ExpireUnconfirmed(context.Context, string) (service.ReapOutcome, error) {
	return service.ReapSkipped, nil
}

func (s *stubPayments) ListPayments(context.Context, uuid.UUID) ([]*dto.PaymentResponse, error) {
	return []*dto.PaymentResponse{}, nil
}

type stubSubscriptions struct {
	cancelErr error
}

func (s *stubSubscriptions) GetMySubscription(context.Context, uuid.UUID) (*dto.MySubscriptionResponse, error) {
	return &dto.MySubscriptionResponse{IsPremium: false, DailyLimit: 1}, nil
}

func (s *stubSubscriptions) GetEntitlement(context.Context, uuid.UUID) (*cache.Entitlement, error) {
	return &cache.Entitlement{PlanSlug: plans.FreemiumSlug, DailyLimit: 1}, nil
}

func (s *stubSubscriptions) Cancel(context.Context, uuid.UUID) (*dto.SubscriptionResponse, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &dto.SubscriptionResponse{Status: "cancelled"}, nil
}

func (s *stubSubscriptions) History(context.Context, uuid.UUID) ([]*dto.SubscriptionResponse, error) {
	return []*dto.SubscriptionResponse{}, nil
}

func newTestApp(payments *stubPayments, subs *stubSubscriptions) *fiber.App {
	app := fiber.New()
	api := app.Group("/api")
	jwtMiddleware := serverutils.NewJwtMiddleware(testSecret)
	log := logger.NewNopLogger()
	NewPaymentController(payments, log).RegisterRoutes(api, jwtMiddleware)
	NewPlanController(service.NewPlanService(plans.Default()), subs, log).RegisterRoutes(api, jwtMiddleware)
	return app
}

func bearer(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userId.String()}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, app *fiber.App, method, url, body, auth string, headers ...string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCreatePayment(t *testing.T) {
	userId := uuid.New()
	var got *dto.CreatePaymentRequest
	payments := &stubPayments{initiate: func(id uuid.UUID, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
		assert.Equal(t, userId, id)
		got = req
		return &dto.CreatePaymentResponse{
			Payment:      &dto.PaymentResponse{TransactionReference: "BETABC", Status: "pending"},
			Subscription: &dto.SubscriptionResponse{PlanSlug: "pro", Status: "pending"},
			CheckoutURL:  "https://pay.example/checkout",
		}, nil
	}}
	app := newTestApp(payments, &stubSubscriptions{})

	status, body := do(t, app, "POST", "/api/payments/create", `{"plan_slug":"pro","payment_method":"emola"}`, bearer(t, userId))

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://pay.example/checkout", body["checkout_url"])
	assert.Equal(t, "BETABC", body["payment"].(map[string]interface{})["transaction_reference"])
	require.NotNil(t, got)
	assert.Equal(t, "emola", got.PaymentMethod)
}

func TestCreatePaymentErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "missing plan", body: `{}`, wantCode: 400, wantErr: "validation_error"},
		{name: "unknown method", body: `{"plan_slug":"pro","payment_method":"paypal"}`, wantCode: 400, wantErr: "validation_error"},
		{name: "invalid plan", body: `{"plan_slug":"freemium"}`, err: service.ErrInvalidPlan, wantCode: 400, wantErr: "invalid_plan"},
		{name: "duplicate", body: `{"plan_slug":"pro"}`, err: &service.DuplicateSubscriptionError{Subscription: &dto.SubscriptionResponse{PlanSlug: "starter"}}, wantCode: 400, wantErr: "duplicate_subscription"},
		{name: "rejected", body: `{"plan_slug":"pro"}`, err: &service.GatewayError{Kind: service.ErrGatewayRejected, Message: "invalid phone"}, wantCode: 502, wantErr: "gateway_rejected"},
		{name: "unavailable", body: `{"plan_slug":"pro"}`, err: &service.GatewayError{Kind: service.ErrGatewayUnavailable, Message: "timeout"}, wantCode: 503, wantErr: "gateway_unavailable"},
		{name: "unexpected", body: `{"plan_slug":"pro"}`, err: assert.AnError, wantCode: 500, wantErr: "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &stubPayments{initiate: func(uuid.UUID, *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
				return nil, tt.err
			}}
			app := newTestApp(payments, &stubSubscriptions{})

			status, body := do(t, app, "POST", "/api/payments/create", tt.body, bearer(t, uuid.New()))

			assert.Equal(t, tt.wantCode, status)
			assert.Equal(t, tt.wantErr, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDuplicateCarriesExistingSubscription(t *testing.T) {
	payments := &stubPayments{initiate: func(uuid.UUID, *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
		return nil, &service.DuplicateSubscriptionError{Subscription: &dto.SubscriptionResponse{PlanSlug: "starter"}}
	}}
	app := newTestApp(payments, &stubSubscriptions{})

	_, body := do(t, app, "POST", "/api/payments/create", `{"plan_slug":"pro"}`, bearer(t, uuid.New()))

	details := body["details"].(map[string]interface{})
	assert.Equal(t, "starter", details["subscription"].(map[string]interface{})["plan"])
}

func TestCreatePaymentRequiresToken(t *testing.T) {
	app := newTestApp(&stubPayments{}, &stubSubscriptions{})

	status, _ := do(t, app, "POST", "/api/payments/create", `{"plan_slug":"pro"}`, "")

	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "accepted", wantCode: 200},
		{name: "bad signature", err: service.ErrInvalidSignature, wantCode: 401},
		{name: "malformed", err: service.ErrMalformedWebhook, wantCode: 400},
		{name: "unknown payment", err: service.ErrPaymentNotFound, wantCode: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody, gotSig string
			payments := &stubPayments{webhook: func(body []byte, signature string) error {
				gotBody, gotSig = string(body), signature
				return tt.err
			}}
			app := newTestApp(payments, &stubSubscriptions{})

			status, body := do(t, app, "POST", "/api/payments/webhook", `{"event":"payment.success"}`, "", SignatureHeader, "abc123")

			assert.Equal(t, tt.wantCode, status)
			assert.Equal(t, `{"event":"payment.success"}`, gotBody)
			assert.Equal(t, "abc123", gotSig)
			if tt.err == nil {
				assert.Equal(t, true, body["success"])
			}
		})
	}
}

func TestCheckStatus(t *testing.T) {
	userId := uuid.New()
	payments := &stubPayments{check: func(id uuid.UUID, reference string) (*dto.CheckStatusResponse, error) {
		if reference == "missing" {
			return nil, service.ErrPaymentNotFound
		}
		assert.Equal(t, userId, id)
		return &dto.CheckStatusResponse{Status: "completed", PaysuiteStatus: "completed", PollingEnabled: true}, nil
	}}
	app := newTestApp(payments, &stubSubscriptions{})

	status, body := do(t, app, "GET", "/api/payments/check/BET123", "", bearer(t, userId))
	assert.Equal(t, 200, status)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, true, body["polling_enabled"])

	status, _ = do(t, app, "GET", "/api/payments/check/missing", "", bearer(t, userId))
	assert.Equal(t, 404, status)
}

func TestPlanRoutes(t *testing.T) {
	app := newTestApp(&stubPayments{}, &stubSubscriptions{})

	status, body := do(t, app, "GET", "/api/subscriptions/plans", "", "")
	assert.Equal(t, 200, status)
	assert.Len(t, body["data"], len(plans.Default().Active()))

	status, body = do(t, app, "GET", "/api/subscriptions/plans/premium", "", "")
	assert.Equal(t, 200, status)
	for _, p := range body["data"].([]interface{}) {
		assert.NotEqual(t, plans.FreemiumSlug, p.(map[string]interface{})["slug"])
	}

	status, body = do(t, app, "GET", "/api/subscriptions/plans/pro", "", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "pro", body["data"].(map[string]interface{})["slug"])

	status, body = do(t, app, "GET", "/api/subscriptions/plans/nope", "", "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "plan_not_found", body["code"])
}

func TestSubscriptionRoutes(t *testing.T) {
	auth := bearer(t, uuid.New())

	app := newTestApp(&stubPayments{}, &stubSubscriptions{})
	for _, url := range []string{"/api/subscriptions/my-subscription", "/api/subscriptions/entitlement", "/api/subscriptions/history", "/api/payments/my-payments"} {
		status, _ := do(t, app, "GET", url, "", auth)
		assert.Equal(t, 200, status, url)

		status, _ = do(t, app, "GET", url, "", "")
		assert.Equal(t, 401, status, url)
	}

	status, body := do(t, app, "POST", "/api/subscriptions/cancel", "", auth)
	assert.Equal(t, 200, status)
	assert.Equal(t, "cancelled", body["data"].(map[string]interface{})["status"])

	app = newTestApp(&stubPayments{}, &stubSubscriptions{cancelErr: service.ErrNoActiveSubscription})
	status, body = do(t, app, "POST", "/api/subscriptions/cancel", "", auth)
	assert.Equal(t, 404, status)
	assert.Equal(t, "no_active_subscription", body["code"])
}
