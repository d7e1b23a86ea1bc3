package paysuite

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const SignatureHeader = "X-Paysuite-Signature"

const (
	EventPaymentSuccess = "payment.success"
	EventPaymentFailed  = "payment.failed"
)

// WebhookOutcome is what a callback asks the reconciler to do.
type WebhookOutcome int

const (
	WebhookIgnored WebhookOutcome = iota
	WebhookSuccess
	WebhookFailed
)

var ErrMalformedWebhook = errors.New("paysuite: malformed webhook payload")

// WebhookEvent is a parsed provider callback.
type WebhookEvent struct {
	Event         string
	Outcome       WebhookOutcome
	Reference     string
	TransactionId string
	Amount        interface{}
	PaidAt        *time.Time
	Payload       map[string]interface{}
}

// VerifySignature checks the hex HMAC-SHA256 of body against signature.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	expected := Sign(c.cfg.WebhookSecret, body)
	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected))
}

// Sign returns the signature the provider would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookPayload struct {
	Event         string      `json:"event"`
	Status        string      `json:"status"`
	Reference     string      `json:"reference"`
	TransactionId string      `json:"transaction_id"`
	Amount        interface{} `json:"amount"`
	PaidAt        string      `json:"paid_at"`
	Data          *struct {
		Id          string      `json:"id"`
		Reference   string      `json:"reference"`
		Amount      interface{} `json:"amount"`
		Transaction *struct {
			TransactionId string `json:"transaction_id"`
			PaidAt        string `json:"paid_at"`
			Status        string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
}

// ParseWebhook decodes a callback body. The reference is the one we generated,
// not the provider id.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	var generic map[string]interface{}
	_ = json.Unmarshal(body, &generic)

	ev := &WebhookEvent{
		Event:         p.Event,
		Reference:     p.Reference,
		TransactionId: p.TransactionId,
		Amount:        p.Amount,
		PaidAt:        parseTime(p.PaidAt),
		Payload:       generic,
	}
	if d := p.Data; d != nil {
		if d.Reference != "" {
			ev.Reference = d.Reference
		}
		if d.Amount != nil {
			ev.Amount = d.Amount
		}
		if tx := d.Transaction; tx != nil {
			if tx.TransactionId != "" {
				ev.TransactionId = tx.TransactionId
			}
			if t := parseTime(tx.PaidAt); t != nil {
				ev.PaidAt = t
			}
		}
	}
	if ev.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrMalformedWebhook)
	}

	switch p.Event {
	case EventPaymentSuccess:
		ev.Outcome = WebhookSuccess
	case EventPaymentFailed:
		ev.Outcome = WebhookFailed
	default:
		switch strings.ToLower(p.Status) {
		case "completed", "success", "paid":
			ev.Outcome = WebhookSuccess
		case "failed", "cancelled":
			ev.Outcome = WebhookFailed
		default:
			ev.Outcome = WebhookIgnored
		}
	}
	return ev, nil
}
