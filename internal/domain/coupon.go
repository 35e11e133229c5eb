package domain

import (
	"strings"
	"time"

	"huntbooking/internal/pkg/validator"
)

type Coupon struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	Code            string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code" validate:"required"`
	DiscountPercent float64    `gorm:"not null" json:"discount_percent" validate:"gte=0,lte=100"`
	MaxUses         int        `gorm:"not null;default:0" json:"max_uses" validate:"gte=0"`
	TimesUsed       int        `gorm:"not null;default:0" json:"times_used" validate:"gte=0"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewCoupon(code string, discountPercent float64, maxUses int, expiresAt *time.Time) (*Coupon, error) {
	c := &Coupon{
		Code:            NormalizeCouponCode(code),
		DiscountPercent: discountPercent,
		MaxUses:         maxUses,
		ExpiresAt:       expiresAt,
	}
	if fields := validator.Validate(c); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	return c, nil
}

func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Exhausted applies only to capped coupons (MaxUses > 0).
func (c *Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.TimesUsed >= c.MaxUses
}
