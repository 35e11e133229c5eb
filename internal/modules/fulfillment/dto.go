package fulfillment

import (
	"time"

	"huntbooking/internal/domain"
)

type CreateBookingRequest struct {
	EventID       int64  `json:"event_id" binding:"required" validate:"required,gt=0"`
	TicketCount   int    `json:"ticket_count" binding:"required" validate:"gte=1"`
	CustomerName  string `json:"customer_name" binding:"required" validate:"required,max=255"`
	CustomerEmail string `json:"customer_email" binding:"required" validate:"required,email"`
	CouponCode    string `json:"coupon_code,omitempty"`
}

type ResultKind string

const (
	ResultFree           ResultKind = "free"
	ResultPendingPayment ResultKind = "pending_payment"
)

// CreateBookingResult is either a free booking (already paid, no token) or a pending one
// whose GatewayClientToken sends the customer to checkout.
type CreateBookingResult struct {
	Kind               ResultKind
	BookingCode        string
	Status             domain.BookingStatus
	GatewayClientToken string
	Booking            *domain.Booking
}

type SkippedBooking struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type BulkDeleteResult struct {
	Deleted []int64          `json:"deleted"`
	Skipped []SkippedBooking `json:"skipped"`
}

type EditCustomerRequest struct {
	CustomerName  string `json:"customer_name" validate:"required,max=255"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	Note          string `json:"note"`
}

type CreateBookingResponse struct {
	BookingCode        string               `json:"booking_code"`
	Status             domain.BookingStatus `json:"status"`
	TotalPrice         int64                `json:"total_price"`
	GatewayClientToken string               `json:"gateway_client_token,omitempty"`
}

// BookingStatusResponse is the public view of a booking; contact fields are left out.
type BookingStatusResponse struct {
	BookingCode string               `json:"booking_code"`
	EventID     int64                `json:"event_id"`
	TicketCount int                  `json:"ticket_count"`
	TotalPrice  int64                `json:"total_price"`
	Status      domain.BookingStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	PaidAt      *time.Time           `json:"paid_at,omitempty"`
}

func toStatusResponse(b *domain.Booking) BookingStatusResponse {
	return BookingStatusResponse{
		BookingCode: b.BookingCode,
		EventID:     b.EventID,
		TicketCount: b.TicketCount,
		TotalPrice:  b.TotalPrice,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		PaidAt:      b.PaidAt,
	}
}
