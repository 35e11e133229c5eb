package coupon

import (
	"context"
	"errors"
	"time"

	"huntbooking/internal/domain"
	"huntbooking/internal/pkg/money"
	"huntbooking/internal/repository"
)

type Service struct {
	coupons CouponRepository
	now     func() time.Time
}

func NewService(coupons CouponRepository) *Service {
	return &Service{coupons: coupons, now: time.Now}
}

// Lookup loads a coupon by code and applies the expiry and cap rules.
func (s *Service) Lookup(ctx context.Context, code string) (*domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, ErrCouponNotFound
	}
	c, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.Expired(s.now()) {
		return nil, ErrCouponExpired
	}
	if c.Exhausted() {
		return nil, ErrCouponExhausted
	}
	return c, nil
}

// ValidateAndPrice returns the discounted total in minor units and the coupon id.
func (s *Service) ValidateAndPrice(ctx context.Context, code string, subtotal int64) (int64, int64, error) {
	c, err := s.Lookup(ctx, code)
	if err != nil {
		return 0, 0, err
	}
	return money.ApplyDiscount(subtotal, c.DiscountPercent), c.ID, nil
}

// IncrementUsage consumes one use of the coupon. It never pushes a capped coupon past MaxUses.
func (s *Service) IncrementUsage(ctx context.Context, couponID int64) error {
	ok, err := s.coupons.IncrementUsage(ctx, couponID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.coupons.GetByID(ctx, couponID); errors.Is(err, repository.ErrNotFound) {
		return ErrCouponNotFound
	} else if err != nil {
		return err
	}
	return ErrCouponExhausted
}
