package repository

import (
	"context"

	"gorm.io/gorm"

	"huntbooking/internal/domain"
)

// AuditRepository is append-only: it exposes no update or delete.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	return translate(conn(ctx, r.db).Create(rec).Error)
}

func (r *AuditRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	err := conn(ctx, r.db).Where("booking_id = ?", bookingID).Order("timestamp, id").Find(&out).Error
	return out, err
}

func (r *AuditRepository) CountByType(ctx context.Context, bookingID int64, eventType domain.AuditEventType) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.AuditRecord{}).
		Where("booking_id = ? AND event_type = ?", bookingID, eventType).
		Count(&n).Error
	return n, err
}
