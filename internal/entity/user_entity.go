// FILE: internal/entity/user_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is owned by the auth service; we only read the contact fields and keep the
// premium flag in sync with subscriptions.
type User struct {
	Id           uuid.UUID
	Email        string
	Username     string
	IsPremium    bool
	PremiumUntil *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
