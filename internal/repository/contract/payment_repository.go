package contract

import (
	"context"
	"errors"

	"placarcerto-be/internal/entity"
	"placarcerto-be/internal/repository/specification"
)

// ErrDuplicateReference is returned by Create when the transaction reference is taken.
var ErrDuplicateReference = errors.New("transaction reference already exists")

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Payment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
