package specification

import (
	"time"

	"gorm.io/gorm"
)

// ActiveAt matches active subscriptions still running at Now (no end date = unlimited).
type ActiveAt struct {
	Now time.Time
}

func (s ActiveAt) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND (end_date IS NULL OR end_date > ?)", "active", s.Now)
}

// EndedBy matches active subscriptions whose end date is at or before Now.
type EndedBy struct {
	Now time.Time
}

func (s EndedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", "active", s.Now)
}

type ExcludePlan struct {
	Slug string
}

func (s ExcludePlan) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("plan_slug <> ?", s.Slug)
}
