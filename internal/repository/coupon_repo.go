package repository

import (
	"context"

	"gorm.io/gorm"

	"huntbooking/internal/domain"
)

type CouponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	return translate(conn(ctx, r.db).Create(c).Error)
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := conn(ctx, r.db).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := conn(ctx, r.db).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// IncrementUsage bumps times_used unless the cap is reached; false means no row changed.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id int64) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.Coupon{}).
		Where("id = ? AND (max_uses = 0 OR times_used < max_uses)", id).
		Update("times_used", gorm.Expr("times_used + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
