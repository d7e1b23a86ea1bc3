package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Payment struct {
	Id                   uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId               uuid.UUID         `gorm:"type:uuid;not null;index"`
	SubscriptionId       *uuid.UUID        `gorm:"type:uuid;index"`
	Amount               decimal.Decimal   `gorm:"type:decimal(10,2);not null"`
	Currency             string            `gorm:"type:varchar(3);not null;default:'MZN'"`
	TransactionReference string            `gorm:"type:varchar(100);uniqueIndex;not null"`
	ProviderId           *string           `gorm:"type:varchar(100);index"`
	Status               string            `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentMethod        string            `gorm:"type:varchar(20);not null"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb"`
	CompletedAt          *time.Time
	CreatedAt            time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
