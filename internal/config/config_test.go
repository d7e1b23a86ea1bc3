package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "8081")
	t.Setenv("PAYSUITE_MODE", "token")
	t.Setenv("PAYSUITE_TIMEOUT", "15")
	t.Setenv("PENDING_PAYMENT_MAX_AGE", "90m")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "8081", cfg.App.Port)
	assert.Equal(t, "token", cfg.PaySuite.Mode)
	assert.Equal(t, 15*time.Second, cfg.PaySuite.Timeout)
	assert.Equal(t, 90*time.Minute, cfg.Billing.PendingPaymentMaxAge)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestGetEnvAsDurationFallback(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")

	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DURATION", time.Minute))
	assert.Equal(t, time.Hour, getEnvAsDuration("UNSET_DURATION_KEY", time.Hour))
}
