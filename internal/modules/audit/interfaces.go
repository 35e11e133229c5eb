package audit

import (
	"context"

	"huntbooking/internal/domain"
)

type AuditRepository interface {
	Append(ctx context.Context, rec *domain.AuditRecord) error
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.AuditRecord, error)
}

// Publisher receives records once they are durable.
type Publisher interface {
	Publish(rec *domain.AuditRecord)
}
