package fulfillment

import (
	"context"
	"time"

	"huntbooking/internal/domain"
	"huntbooking/internal/modules/audit"
	"huntbooking/internal/modules/payment"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	GetByPaymentReference(ctx context.Context, ref string) (*domain.Booking, error)
	SetPaymentReference(ctx context.Context, id int64, ref string) (bool, error)
	TransitionStatus(ctx context.Context, id int64, from, to domain.BookingStatus, at time.Time) (bool, error)
	UpdateCustomer(ctx context.Context, id int64, name, email string) error
	Delete(ctx context.Context, ids []int64) (int64, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error)
}

type EventReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CodeGenerator interface {
	GenerateUniqueCode(ctx context.Context, huntCode string) (string, error)
}

type CouponAccountant interface {
	ValidateAndPrice(ctx context.Context, code string, subtotal int64) (int64, int64, error)
	IncrementUsage(ctx context.Context, couponID int64) error
}

type InventoryManager interface {
	DecrementSeats(ctx context.Context, eventID int64, count int, bookingID int64) (int, error)
	IncrementSeats(ctx context.Context, eventID int64, count int, bookingID int64) (int, error)
}

type AuditLog interface {
	Record(ctx context.Context, e audit.Entry) (*domain.AuditRecord, error)
	ListForBooking(ctx context.Context, bookingID int64) ([]domain.AuditRecord, error)
}

type Gateway interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	Refund(ctx context.Context, paymentReference string, amount int64, idempotencyKey string) error
}

type Notifier interface {
	SendConfirmation(ctx context.Context, b *domain.Booking) error
}
