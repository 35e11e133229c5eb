package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"huntbooking/internal/domain"
)

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(ctx context.Context, a *domain.AdminUser) error {
	return translate(conn(ctx, r.db).Create(a).Error)
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var a domain.AdminUser
	if err := conn(ctx, r.db).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AdminRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	return conn(ctx, r.db).Model(&domain.AdminUser{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (r *AdminRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := conn(ctx, r.db).Model(&domain.AdminUser{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
