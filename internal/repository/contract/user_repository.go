package contract

import (
	"context"
	"time"

	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	// UpdatePremium only touches the premium columns.
	UpdatePremium(ctx context.Context, id uuid.UUID, isPremium bool, until *time.Time) error
}
