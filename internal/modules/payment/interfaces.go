package payment

import (
	"context"
	"time"

	"huntbooking/internal/domain"
)

type intentRepo interface {
	Create(ctx context.Context, p *domain.PaymentIntent) error
	GetByInvID(ctx context.Context, invID int64) (*domain.PaymentIntent, error)
	UpdateStatus(ctx context.Context, invID int64, status domain.PaymentIntentStatus, rawBody, reason string) error
	MarkPaidIdempotent(ctx context.Context, invID int64, rawBody string, paidAt time.Time) (bool, error)
	MarkFailedIfOpen(ctx context.Context, invID int64, rawBody, reason string) (bool, error)
	MarkRefunded(ctx context.Context, invID int64, requestID string, at time.Time) error
}

// EventHandler consumes verified gateway events. Implementations must be idempotent:
// the gateway redelivers until it receives an acknowledgement.
type EventHandler interface {
	HandlePaymentSucceeded(ctx context.Context, paymentReference string) error
	HandlePaymentFailed(ctx context.Context, paymentReference string) error
}
