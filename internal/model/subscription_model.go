package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Subscription struct {
	Id          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID       `gorm:"type:uuid;not null;index"`
	PlanSlug    string          `gorm:"type:varchar(50);not null;index"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	StartDate   time.Time       `gorm:"not null"`
	EndDate     *time.Time      `gorm:"index"`
	AutoRenew   bool            `gorm:"default:true"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CancelledAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
