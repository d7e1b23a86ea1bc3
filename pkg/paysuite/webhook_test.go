package paysuite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	c := NewClient(Config{WebhookSecret: "whsec"}, nil)
	body := []byte(`{"event":"payment.success","data":{"reference":"BET1"}}`)

	assert.True(t, c.VerifySignature(body, Sign("whsec", body)))
	assert.False(t, c.VerifySignature(body, Sign("other", body)))
	assert.False(t, c.VerifySignature([]byte(`{}`), Sign("whsec", body)))
	assert.False(t, c.VerifySignature(body, "not-hex"))
}

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOutcome WebhookOutcome
		wantRef     string
		wantTxId    string
		wantPaidAt  bool
	}{
		{
			name:        "success event",
			body:        `{"event":"payment.success","data":{"id":"p1","reference":"BET1","amount":599,"transaction":{"transaction_id":"T9","paid_at":"2026-03-01T10:00:00Z","status":"completed"}}}`,
			wantOutcome: WebhookSuccess,
			wantRef:     "BET1",
			wantTxId:    "T9",
			wantPaidAt:  true,
		},
		{
			name:        "failed event",
			body:        `{"event":"payment.failed","data":{"reference":"BET2"}}`,
			wantOutcome: WebhookFailed,
			wantRef:     "BET2",
		},
		{
			name:        "fallback status field",
			body:        `{"status":"completed","reference":"BET3","transaction_id":"T3"}`,
			wantOutcome: WebhookSuccess,
			wantRef:     "BET3",
			wantTxId:    "T3",
		},
		{
			name:        "unknown event",
			body:        `{"event":"payment.created","data":{"reference":"BET4"}}`,
			wantOutcome: WebhookIgnored,
			wantRef:     "BET4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseWebhook([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, ev.Outcome)
			assert.Equal(t, tt.wantRef, ev.Reference)
			assert.Equal(t, tt.wantTxId, ev.TransactionId)
			assert.Equal(t, tt.wantPaidAt, ev.PaidAt != nil)
			assert.NotNil(t, ev.Payload)
		})
	}
}

func TestParseWebhookMalformed(t *testing.T) {
	for _, body := range []string{`not json`, `{"event":"payment.success","data":{}}`, `[]`} {
		_, err := ParseWebhook([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedWebhook, body)
	}
}
