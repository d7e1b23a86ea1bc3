package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionResponse struct {
	Id            uuid.UUID       `json:"id"`
	PlanSlug      string          `json:"plan"`
	PlanName      string          `json:"plan_name"`
	Status        string          `json:"status"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	AutoRenew     bool            `json:"auto_renew"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	DailyLimit    int             `json:"daily_limit"`
	DaysRemaining int             `json:"days_remaining"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PlanResponse struct {
	Slug               string          `json:"slug"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	Currency           string          `json:"currency"`
	DailyAnalysisLimit int             `json:"daily_analysis_limit"`
	DurationDays       *int            `json:"duration_days"`
	TrialDays          int             `json:"trial_days"`
	Savings            decimal.Decimal `json:"savings"`
	Description        string          `json:"description"`
	Features           []string        `json:"features"`
	Popular            bool            `json:"popular"`
}

// MySubscriptionResponse falls back to the free tier when nothing is active.
type MySubscriptionResponse struct {
	Subscription *SubscriptionResponse `json:"subscription"`
	Plan         *PlanResponse         `json:"plan"`
	IsPremium    bool                  `json:"is_premium"`
	DailyLimit   int                   `json:"daily_limit"`
}
