package admin

import (
	"context"
	"time"

	"huntbooking/internal/domain"
	"huntbooking/internal/modules/fulfillment"
)

type AdminRepository interface {
	Create(ctx context.Context, a *domain.AdminUser) error
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

type TokenIssuer interface {
	GenerateToken(userID int64, email, role string) (string, error)
}

// BookingOperations are the booking mutations an admin may perform.
type BookingOperations interface {
	ProcessRefund(ctx context.Context, bookingID int64, actor string) (*domain.Booking, error)
	BulkDeleteBookings(ctx context.Context, ids []int64, actor string) (*fulfillment.BulkDeleteResult, error)
	EditCustomer(ctx context.Context, bookingID int64, req fulfillment.EditCustomerRequest, actor string) (*domain.Booking, error)
}
