package domain

import (
	"fmt"
	"strings"
	"time"

	"huntbooking/internal/pkg/validator"
)

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingPaid     BookingStatus = "paid"
	BookingFailed   BookingStatus = "failed"
	BookingRefunded BookingStatus = "refunded"
)

// Terminal reports whether no further transitions are allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingFailed || s == BookingRefunded
}

// Booking amounts are minor currency units.
type Booking struct {
	ID               int64         `gorm:"primaryKey" json:"id"`
	BookingCode      string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"booking_code" validate:"required"`
	EventID          int64         `gorm:"index;not null" json:"event_id" validate:"required"`
	CustomerName     string        `gorm:"type:varchar(255);not null" json:"customer_name" validate:"required"`
	CustomerEmail    string        `gorm:"type:varchar(255);not null" json:"customer_email" validate:"required,email"`
	TicketCount      int           `gorm:"not null" json:"ticket_count" validate:"gte=1"`
	TotalPrice       int64         `gorm:"not null" json:"total_price" validate:"gte=0"`
	CouponID         *int64        `gorm:"index" json:"coupon_id,omitempty"`
	PaymentReference *string       `gorm:"type:varchar(128);uniqueIndex" json:"payment_reference,omitempty"`
	Status           BookingStatus `gorm:"type:varchar(20);index;not null" json:"status" validate:"oneof=pending paid failed refunded"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	RefundedAt       *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

type NewBookingParams struct {
	BookingCode   string
	EventID       int64
	CustomerName  string
	CustomerEmail string
	TicketCount   int
	TotalPrice    int64
	CouponID      *int64
	Status        BookingStatus
}

// NewBooking builds a validated booking. Only pending and paid are valid initial states.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if p.Status != BookingPending && p.Status != BookingPaid {
		return nil, fmt.Errorf("invalid initial booking status %q", p.Status)
	}
	b := &Booking{
		BookingCode:   p.BookingCode,
		EventID:       p.EventID,
		CustomerName:  strings.TrimSpace(p.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(p.CustomerEmail)),
		TicketCount:   p.TicketCount,
		TotalPrice:    p.TotalPrice,
		CouponID:      p.CouponID,
		Status:        p.Status,
	}
	if fields := validator.Validate(b); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	return b, nil
}

// BookingSnapshot is the audit view of a booking at one point in time.
type BookingSnapshot struct {
	BookingCode      string        `json:"booking_code"`
	EventID          int64         `json:"event_id"`
	CustomerName     string        `json:"customer_name"`
	CustomerEmail    string        `json:"customer_email"`
	TicketCount      int           `json:"ticket_count"`
	TotalPrice       int64         `json:"total_price"`
	CouponID         *int64        `json:"coupon_id,omitempty"`
	PaymentReference *string       `json:"payment_reference,omitempty"`
	Status           BookingStatus `json:"status"`
}

func (b *Booking) Snapshot() *BookingSnapshot {
	if b == nil {
		return nil
	}
	return &BookingSnapshot{
		BookingCode:      b.BookingCode,
		EventID:          b.EventID,
		CustomerName:     b.CustomerName,
		CustomerEmail:    b.CustomerEmail,
		TicketCount:      b.TicketCount,
		TotalPrice:       b.TotalPrice,
		CouponID:         b.CouponID,
		PaymentReference: b.PaymentReference,
		Status:           b.Status,
	}
}

// ValidationError lists offending fields and their failed rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, tag := range e.Fields {
		parts = append(parts, f+":"+tag)
	}
	return "invalid fields: " + strings.Join(parts, ",")
}
