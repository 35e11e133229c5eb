package repository

import (
	"context"

	"gorm.io/gorm"

	"huntbooking/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return conn(ctx, r.db).Create(n).Error
}

func (r *NotificationRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Notification, error) {
	var out []domain.Notification
	err := conn(ctx, r.db).Where("booking_id = ?", bookingID).Order("id").Find(&out).Error
	return out, err
}
