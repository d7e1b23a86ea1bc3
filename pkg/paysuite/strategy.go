package paysuite

import (
	"context"
	"errors"
	"strings"
)

// Outcome tags the result of one protocol attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeProtocolMismatch: no usable answer (transport error, non-JSON, no success marker).
	OutcomeProtocolMismatch
	// OutcomeError: the provider explicitly refused the payment.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeProtocolMismatch:
		return "protocol_mismatch"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Attempt is the tagged result of submitting through one protocol.
type Attempt struct {
	Strategy    string
	Outcome     Outcome
	ProviderId  string
	CheckoutURL string
	Status      string
	Message     string
	Raw         map[string]interface{}
}

type strategy interface {
	name() string
	configured() bool
	submit(ctx context.Context, req PaymentRequest) Attempt
}

// tokenStrategy is the bearer-token JSON API returning a checkout id.
type tokenStrategy struct {
	c *Client
}

func (s *tokenStrategy) name() string { return "token" }

func (s *tokenStrategy) configured() bool {
	// auto mode still tries the token flow without a key, the provider may accept it
	return s.c.cfg.APIKey != "" || s.c.cfg.Mode == ModeAuto
}

func (s *tokenStrategy) submit(ctx context.Context, req PaymentRequest) Attempt {
	payload := map[string]interface{}{
		"amount":      req.Amount.InexactFloat64(),
		"reference":   req.Reference,
		"description": req.Description,
	}
	if req.Method != "" {
		payload["method"] = req.Method
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.c.cfg.ReturnURL
	}
	if returnURL != "" {
		payload["return_url"] = returnURL
	}
	if s.c.cfg.CallbackURL != "" {
		payload["callback_url"] = s.c.cfg.CallbackURL
	}
	if req.Phone != "" && (req.Method == "mpesa" || req.Method == "emola") {
		payload["msisdn"] = NormalizeMSISDN(req.Phone)
	}

	headers := map[string]string{}
	if s.c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + s.c.cfg.APIKey
	}

	env, raw, err := s.c.postJSON(ctx, s.c.cfg.BaseURL+"/payments", headers, payload)
	return classify(s.name(), env, raw, err)
}

// linkStrategy is the private-key payment-link API returning a hosted URL.
type linkStrategy struct {
	c *Client
}

func (s *linkStrategy) name() string { return "private_key" }

func (s *linkStrategy) configured() bool {
	return s.c.cfg.PrivateKey != ""
}

func (s *linkStrategy) submit(ctx context.Context, req PaymentRequest) Attempt {
	isTest := 1
	if s.c.cfg.Environment == EnvironmentProduction {
		isTest = 0
	}
	payload := map[string]interface{}{
		"private_key":  s.c.cfg.PrivateKey,
		"currency":     DefaultCurrency,
		"callback_url": s.c.cfg.CallbackURL,
		"is_test":      isTest,
		"amount":       req.Amount.InexactFloat64(),
		"purpose":      req.Description,
	}

	env, raw, err := s.c.postJSON(ctx, s.c.cfg.BaseURL+"/request", nil, payload)
	return classify(s.name(), env, raw, err)
}

// classify turns a decoded response into a tagged Attempt.
func classify(name string, env *envelope, raw map[string]interface{}, err error) Attempt {
	a := Attempt{Strategy: name, Raw: raw}
	if err != nil {
		a.Outcome = OutcomeProtocolMismatch
		a.Message = err.Error()
		var nj *nonJSONError
		if errors.As(err, &nj) {
			a.Message = "non-JSON response"
		}
		return a
	}

	id := stringField(env.Data, "id")
	if env.Status == "success" && id != "" {
		a.Outcome = OutcomeOK
		a.ProviderId = id
		a.CheckoutURL = stringField(env.Data, "checkout_url")
		a.Status = stringField(env.Data, "status")
		if a.Status == "" {
			a.Status = "pending"
		}
		return a
	}

	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if env.Status != "" && env.Status != "success" && msg != "" {
		a.Outcome = OutcomeError
		a.Message = msg
		return a
	}

	a.Outcome = OutcomeProtocolMismatch
	a.Message = "response without success marker"
	return a
}

// NormalizeMSISDN formats a Mozambican number as 258XXXXXXXXX.
func NormalizeMSISDN(phone string) string {
	r := strings.NewReplacer("+", "", " ", "", "-", "")
	clean := r.Replace(phone)
	if !strings.HasPrefix(clean, "258") {
		clean = "258" + strings.TrimLeft(clean, "0")
	}
	return clean
}
