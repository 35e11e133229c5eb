package coupon

import (
	"context"

	"huntbooking/internal/domain"
)

type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	GetByID(ctx context.Context, id int64) (*domain.Coupon, error)
	IncrementUsage(ctx context.Context, id int64) (bool, error)
}

type EventReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
}
