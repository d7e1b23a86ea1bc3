package paysuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"

	ModeAuto       = "auto"
	ModeToken      = "token"
	ModePrivateKey = "private_key"

	DefaultBaseURL  = "https://paysuite.tech/api/v1"
	DefaultCurrency = "MZN"
	DefaultTimeout  = 30 * time.Second

	sandboxCheckoutURL = "https://paysuite.tech/checkout/test-"
	maxResponseBytes   = 1 << 20
)

// Config holds the gateway credentials. Either credential may be missing; the
// client only runs strategies it has credentials for.
type Config struct {
	BaseURL       string
	APIKey        string // bearer token for the token protocol
	PrivateKey    string // payment-link protocol credential
	WebhookSecret string
	CallbackURL   string
	ReturnURL     string // default for requests that carry none
	Environment   string // sandbox | production
	Mode          string // auto | token | private_key
	Timeout       time.Duration
}

// PaymentRequest describes one payment attempt. Phone is optional; without it the
// customer fills it in on the hosted checkout page.
type PaymentRequest struct {
	Amount      decimal.Decimal
	Reference   string
	Description string
	Method      string
	Phone       string
	ReturnURL   string
}

// Checkout is a successful submission.
type Checkout struct {
	ProviderId  string
	CheckoutURL string
	Status      string
	Strategy    string
	Raw         map[string]interface{}
}

// Client talks to PaySuite using whichever integration protocols are configured.
type Client struct {
	cfg        Config
	httpClient *http.Client
	strategies []strategy
}

// NewClient builds a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Environment == "" {
		cfg.Environment = EnvironmentProduction
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{cfg: cfg, httpClient: httpClient}
	switch cfg.Mode {
	case ModeToken:
		c.strategies = []strategy{&tokenStrategy{c: c}}
	case ModePrivateKey:
		c.strategies = []strategy{&linkStrategy{c: c}}
	default:
		c.strategies = []strategy{&tokenStrategy{c: c}, &linkStrategy{c: c}}
	}
	return c
}

// Sandbox reports whether calls are simulated instead of sent.
func (c *Client) Sandbox() bool {
	return c.cfg.Environment == EnvironmentSandbox && c.cfg.Mode == ModeAuto
}

// Submit tries each configured protocol in order until one accepts the payment.
// Each protocol is tried at most once.
func (c *Client) Submit(ctx context.Context, req PaymentRequest) (*Checkout, error) {
	if c.Sandbox() {
		return &Checkout{
			ProviderId:  req.Reference,
			CheckoutURL: sandboxCheckoutURL + req.Reference,
			Status:      "pending",
			Strategy:    "sandbox",
			Raw: map[string]interface{}{
				"test_mode": true,
				"amount":    req.Amount.String(),
				"reference": req.Reference,
			},
		}, nil
	}

	var attempts []Attempt
	for _, s := range c.strategies {
		if !s.configured() {
			continue
		}
		a := s.submit(ctx, req)
		attempts = append(attempts, a)
		if a.Outcome == OutcomeOK {
			return &Checkout{
				ProviderId:  a.ProviderId,
				CheckoutURL: a.CheckoutURL,
				Status:      a.Status,
				Strategy:    a.Strategy,
				Raw:         a.Raw,
			}, nil
		}
		if err := ctx.Err(); err != nil {
			break
		}
	}
	return nil, newSubmitError(attempts)
}

// SubmitError is returned when no protocol accepted the payment.
type SubmitError struct {
	Rejected bool // the provider answered with an explicit error
	Message  string
	Attempts []Attempt
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("paysuite: %s", e.Message)
}

func newSubmitError(attempts []Attempt) *SubmitError {
	if len(attempts) == 0 {
		return &SubmitError{Message: "no payment protocol configured"}
	}
	// The last explicit rejection carries the most useful message for the user.
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Outcome == OutcomeError {
			return &SubmitError{Rejected: true, Message: attempts[i].Message, Attempts: attempts}
		}
	}
	return &SubmitError{
		Message:  "gateway unavailable or endpoint unknown",
		Attempts: attempts,
	}
}

// IsRejected reports whether err is an explicit provider rejection.
func IsRejected(err error) bool {
	var se *SubmitError
	return errors.As(err, &se) && se.Rejected
}

type envelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Data    map[string]interface{} `json:"data"`
}

// postJSON sends body and decodes an envelope. raw is nil when the body is not JSON.
func (c *Client) postJSON(ctx context.Context, url string, headers map[string]string, body interface{}) (*envelope, map[string]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, map[string]interface{}, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, &nonJSONError{status: resp.StatusCode, body: truncate(string(body), 300)}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// data was not an object; keep the raw map but no typed view
		env = envelope{Status: stringField(raw, "status"), Message: stringField(raw, "message")}
	}
	return &env, raw, nil
}

type nonJSONError struct {
	status int
	body   string
}

func (e *nonJSONError) Error() string {
	return fmt.Sprintf("non-JSON response (status %d): %s", e.status, e.body)
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
