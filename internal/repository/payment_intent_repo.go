package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"huntbooking/internal/domain"
)

type PaymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

func (r *PaymentIntentRepository) Create(ctx context.Context, p *domain.PaymentIntent) error {
	return translate(conn(ctx, r.db).Create(p).Error)
}

func (r *PaymentIntentRepository) GetByInvID(ctx context.Context, invID int64) (*domain.PaymentIntent, error) {
	var p domain.PaymentIntent
	if err := conn(ctx, r.db).Where("inv_id = ?", invID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentIntentRepository) UpdateStatus(ctx context.Context, invID int64, status domain.PaymentIntentStatus, rawBody, reason string) error {
	return conn(ctx, r.db).Model(&domain.PaymentIntent{}).Where("inv_id = ?", invID).Updates(map[string]interface{}{
		"status":          status,
		"result_raw_body": rawBody,
		"failure_reason":  reason,
	}).Error
}

// MarkPaidIdempotent reports whether this call moved the intent to paid.
func (r *PaymentIntentRepository) MarkPaidIdempotent(ctx context.Context, invID int64, rawBody string, paidAt time.Time) (bool, error) {
	var changed bool
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var p domain.PaymentIntent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("inv_id = ?", invID).First(&p).Error; err != nil {
			return err
		}
		if p.Status == domain.IntentPaid || p.Status == domain.IntentRefunded {
			changed = false
			return nil
		}
		res := tx.Model(&domain.PaymentIntent{}).Where("inv_id = ?", invID).Updates(map[string]interface{}{
			"status":          domain.IntentPaid,
			"result_raw_body": rawBody,
			"paid_at":         paidAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("payment intent row not updated")
		}
		changed = true
		return nil
	})
	return changed, translate(err)
}

// MarkFailedIfOpen fails an intent that has not been paid yet.
func (r *PaymentIntentRepository) MarkFailedIfOpen(ctx context.Context, invID int64, rawBody, reason string) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.PaymentIntent{}).
		Where("inv_id = ? AND status IN ?", invID, []domain.PaymentIntentStatus{domain.IntentCreated, domain.IntentPending}).
		Updates(map[string]interface{}{
			"status":         domain.IntentFailed,
			"fail_raw_body":  rawBody,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PaymentIntentRepository) MarkRefunded(ctx context.Context, invID int64, requestID string, at time.Time) error {
	return conn(ctx, r.db).Model(&domain.PaymentIntent{}).Where("inv_id = ?", invID).Updates(map[string]interface{}{
		"status":         domain.IntentRefunded,
		"refund_request": requestID,
		"refunded_at":    at,
	}).Error
}
