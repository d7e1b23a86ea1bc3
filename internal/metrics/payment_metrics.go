package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics counts payment lifecycle transitions.
type PaymentMetrics interface {
	IncPaymentInitiated(plan, method string)
	IncPaymentCompleted(plan, source string)
	IncPaymentFailed(plan, reason string)
	IncGatewayError(kind string)
	IncWebhookReceived(outcome string)
	IncSubscriptionsExpired(count int)
	ObservePaymentAmount(amount float64, plan string)
}

type paymentMetrics struct {
	paymentsInitiated    *prometheus.CounterVec
	paymentsCompleted    *prometheus.CounterVec
	paymentsFailed       *prometheus.CounterVec
	gatewayErrors        *prometheus.CounterVec
	webhooks             *prometheus.CounterVec
	subscriptionsExpired prometheus.Counter
	paymentsAmount       *prometheus.HistogramVec
}

func NewPaymentMetrics(registry *prometheus.Registry) PaymentMetrics {
	factory := promauto.With(registry)

	return &paymentMetrics{
		paymentsInitiated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_initiated_total",
				Help: "Payments created and handed to the gateway",
			},
			[]string{"plan", "method"},
		),
		paymentsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_completed_total",
				Help: "Payments confirmed, by confirmation path",
			},
			[]string{"plan", "source"},
		),
		paymentsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_failed_total",
				Help: "Payments moved to failed",
			},
			[]string{"plan", "reason"},
		),
		gatewayErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysuite_submit_errors_total",
				Help: "Gateway submissions that no protocol accepted",
			},
			[]string{"kind"},
		),
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paysuite_webhooks_total",
				Help: "Webhook callbacks by outcome",
			},
			[]string{"outcome"},
		),
		subscriptionsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subscriptions_expired_total",
				Help: "Subscriptions moved to expired by the sweep",
			},
		),
		paymentsAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payments_completed_amount_mzn",
				Help:    "Completed payment amounts",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7), // 1 .. 4096
			},
			[]string{"plan"},
		),
	}
}

func (m *paymentMetrics) IncPaymentInitiated(plan, method string) {
	m.paymentsInitiated.WithLabelValues(plan, method).Inc()
}

func (m *paymentMetrics) IncPaymentCompleted(plan, source string) {
	m.paymentsCompleted.WithLabelValues(plan, source).Inc()
}

func (m *paymentMetrics) IncPaymentFailed(plan, reason string) {
	m.paymentsFailed.WithLabelValues(plan, reason).Inc()
}

func (m *paymentMetrics) IncGatewayError(kind string) {
	m.gatewayErrors.WithLabelValues(kind).Inc()
}

func (m *paymentMetrics) IncWebhookReceived(outcome string) {
	m.webhooks.WithLabelValues(outcome).Inc()
}

func (m *paymentMetrics) IncSubscriptionsExpired(count int) {
	m.subscriptionsExpired.Add(float64(count))
}

func (m *paymentMetrics) ObservePaymentAmount(amount float64, plan string) {
	m.paymentsAmount.WithLabelValues(plan).Observe(amount)
}
