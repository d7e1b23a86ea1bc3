package paysuite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrWebhookOnly is returned by CheckStatus when the configured protocol has no
// status endpoint and confirmation arrives only by webhook.
var ErrWebhookOnly = errors.New("paysuite: status is reported by webhook only")

// StatusResult is the provider view of a payment, mapped to local status names.
type StatusResult struct {
	Status     string // pending | completed | failed
	Raw        string // provider's own status value
	PaidAt     *time.Time
	RawPayload map[string]interface{}
}

// CheckStatus queries the provider for the payment identified by id.
func (c *Client) CheckStatus(ctx context.Context, id string) (*StatusResult, error) {
	if c.Sandbox() {
		return &StatusResult{
			Status:     StatusCompleted,
			Raw:        "completed",
			RawPayload: map[string]interface{}{"test_mode": true, "transaction_id": id},
		}, nil
	}
	if c.cfg.Mode == ModePrivateKey {
		return nil, ErrWebhookOnly
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	env, raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("check status: %w", err)
	}
	if env.Data == nil && env.Status != "" && env.Status != "success" {
		return nil, fmt.Errorf("check status: provider error: %s", env.Message)
	}

	return mapStatus(env.Data, raw), nil
}

func mapStatus(data map[string]interface{}, raw map[string]interface{}) *StatusResult {
	res := &StatusResult{Status: StatusPending, RawPayload: raw}
	res.Raw = stringField(data, "status")

	tx, _ := data["transaction"].(map[string]interface{})
	switch {
	case res.Raw == "paid" || stringField(tx, "status") == "completed":
		res.Status = StatusCompleted
	case res.Raw == "failed":
		res.Status = StatusFailed
	}
	if res.Raw == "" {
		res.Raw = stringField(tx, "status")
	}
	res.PaidAt = parseTime(stringField(tx, "paid_at"))
	return res
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTime returns nil for empty or unrecognized values.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
