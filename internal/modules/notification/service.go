// Package notification queues booking confirmations for the external email sender.
package notification

import (
	"context"
	"fmt"

	"huntbooking/internal/domain"
	"huntbooking/internal/pkg/money"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Notification, error)
}

// ConfirmationPayload is what the sender renders into the confirmation email.
type ConfirmationPayload struct {
	BookingCode  string `json:"booking_code"`
	CustomerName string `json:"customer_name"`
	EventID      int64  `json:"event_id"`
	TicketCount  int    `json:"ticket_count"`
	TotalPrice   string `json:"total_price"`
	Currency     string `json:"currency"`
}

type Service struct {
	repo     NotificationRepository
	currency string
	loggerf  func(format string, args ...interface{})
}

func NewService(repo NotificationRepository, currency string, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{repo: repo, currency: currency, loggerf: loggerf}
}

// SendConfirmation queues one confirmation for a paid booking.
func (s *Service) SendConfirmation(ctx context.Context, b *domain.Booking) error {
	if b == nil {
		return fmt.Errorf("send confirmation: nil booking")
	}
	n := &domain.Notification{
		BookingID: b.ID,
		Recipient: b.CustomerEmail,
		Kind:      domain.NotifBookingConfirmed,
		Payload: ConfirmationPayload{
			BookingCode:  b.BookingCode,
			CustomerName: b.CustomerName,
			EventID:      b.EventID,
			TicketCount:  b.TicketCount,
			TotalPrice:   money.FormatMinor(b.TotalPrice),
			Currency:     s.currency,
		},
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("queue confirmation: %w", err)
	}
	s.loggerf("level=info msg=confirmation queued booking_id=%d recipient=%s", b.ID, b.CustomerEmail)
	return nil
}

func (s *Service) ListForBooking(ctx context.Context, bookingID int64) ([]domain.Notification, error) {
	return s.repo.ListByBooking(ctx, bookingID)
}
