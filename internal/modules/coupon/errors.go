package coupon

import "errors"

var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponExpired   = errors.New("coupon expired")
	ErrCouponExhausted = errors.New("coupon usage cap reached")
)

// IsCouponError reports whether err is one of the coupon rule failures,
// as opposed to a storage failure.
func IsCouponError(err error) bool {
	return errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrCouponExpired) ||
		errors.Is(err, ErrCouponExhausted)
}
