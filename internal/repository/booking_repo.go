package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"huntbooking/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return translate(conn(ctx, r.db).Create(b).Error)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *BookingRepository) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	return r.first(ctx, "booking_code = ?", code)
}

func (r *BookingRepository) GetByPaymentReference(ctx context.Context, ref string) (*domain.Booking, error) {
	return r.first(ctx, "payment_reference = ?", ref)
}

func (r *BookingRepository) first(ctx context.Context, query string, arg interface{}) (*domain.Booking, error) {
	var b domain.Booking
	if err := conn(ctx, r.db).Where(query, arg).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&domain.Booking{}).Where("booking_code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BookingRepository) CodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var codes []string
	err := conn(ctx, r.db).Model(&domain.Booking{}).
		Where("booking_code LIKE ?", prefix+"%").
		Pluck("booking_code", &codes).Error
	return codes, err
}

// SetPaymentReference stores the gateway reference once, and only on a pending booking.
func (r *BookingRepository) SetPaymentReference(ctx context.Context, id int64, ref string) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.Booking{}).
		Where("id = ? AND status = ? AND payment_reference IS NULL", id, domain.BookingPending).
		Update("payment_reference", ref)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// TransitionStatus is the conditional update guarding every lifecycle change.
// It reports false when the booking was not in status from.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.BookingStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case domain.BookingPaid:
		updates["paid_at"] = at
	case domain.BookingRefunded:
		updates["refunded_at"] = at
	}

	res := conn(ctx, r.db).Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BookingRepository) UpdateCustomer(ctx context.Context, id int64, name, email string) error {
	res := conn(ctx, r.db).Model(&domain.Booking{}).Where("id = ?", id).Updates(map[string]interface{}{
		"customer_name":  name,
		"customer_email": email,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := conn(ctx, r.db).Where("id IN ?", ids).Delete(&domain.Booking{})
	return res.RowsAffected, res.Error
}

// ListStalePending returns pending bookings that never received a payment reference.
func (r *BookingRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := conn(ctx, r.db).
		Where("status = ? AND payment_reference IS NULL AND created_at < ?", domain.BookingPending, createdBefore).
		Order("created_at").
		Limit(limit).
		Find(&out).Error
	return out, err
}
