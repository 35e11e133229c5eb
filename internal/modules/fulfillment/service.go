// Package fulfillment coordinates the booking lifecycle: pricing, creation, payment
// intents, webhook fulfillment, refunds and admin edits. The booking status column is the
// only concurrency token; every status change is a conditional update whose success gates
// the seat, coupon and audit writes committed with it.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"huntbooking/internal/domain"
	"huntbooking/internal/modules/audit"
	"huntbooking/internal/modules/coupon"
	"huntbooking/internal/modules/inventory"
	"huntbooking/internal/modules/payment"
	"huntbooking/internal/pkg/validator"
	"huntbooking/internal/repository"
)

const (
	GatewayActor = "gateway"

	maxInsertAttempts = 3
	staleBatchSize    = 500
)

var refundNamespace = uuid.MustParse("5b0c7f0e-2d36-4f5e-9d8e-6a2f4c1b9e71")

type Deps struct {
	Bookings  BookingRepository
	Events    EventReader
	Tx        Transactor
	Codes     CodeGenerator
	Coupons   CouponAccountant
	Inventory InventoryManager
	Audit     AuditLog
	Gateway   Gateway
	Notifier  Notifier
	Currency  string
	Loggerf   func(format string, args ...interface{})
}

type Service struct {
	bookings  BookingRepository
	events    EventReader
	tx        Transactor
	codes     CodeGenerator
	coupons   CouponAccountant
	inventory InventoryManager
	audit     AuditLog
	gateway   Gateway
	notifier  Notifier
	currency  string
	loggerf   func(format string, args ...interface{})
	now       func() time.Time
}

func NewService(d Deps) *Service {
	loggerf := d.Loggerf
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		bookings:  d.Bookings,
		events:    d.Events,
		tx:        d.Tx,
		codes:     d.Codes,
		coupons:   d.Coupons,
		inventory: d.Inventory,
		audit:     d.Audit,
		gateway:   d.Gateway,
		notifier:  d.Notifier,
		currency:  d.Currency,
		loggerf:   loggerf,
		now:       time.Now,
	}
}

// CreateBooking prices the request and writes the booking. Seats are checked here but
// only taken at fulfillment; a free booking takes them immediately.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error) {
	if fields := validator.Validate(req); fields != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, &domain.ValidationError{Fields: fields})
	}

	ev, err := s.events.GetByID(ctx, req.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("event %d: %w", req.EventID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if ev.SeatsAvailable < req.TicketCount {
		return nil, ErrInventoryExhausted
	}

	subtotal := ev.UnitPrice * int64(req.TicketCount)
	total := subtotal
	var couponID *int64
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		discounted, id, err := s.coupons.ValidateAndPrice(ctx, code, subtotal)
		switch {
		case err == nil:
			total = discounted
			couponID = &id
		case coupon.IsCouponError(err):
			// a bad coupon never blocks the booking, it just isn't applied
			s.loggerf("level=info msg=coupon not applied code=%s event_id=%d reason=%v", code, ev.ID, err)
		default:
			return nil, err
		}
	}

	params := domain.NewBookingParams{
		EventID:       ev.ID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		TicketCount:   req.TicketCount,
		TotalPrice:    total,
		CouponID:      couponID,
	}
	if total > 0 {
		return s.createPending(ctx, ev, params)
	}

	res, err := s.createFree(ctx, ev, params)
	if err == nil || params.CouponID == nil || !coupon.IsCouponError(err) {
		return res, err
	}
	// the coupon lost its last use after pricing; book without it
	s.loggerf("level=info msg=coupon not applied code=%s event_id=%d reason=%v", req.CouponCode, ev.ID, err)
	params.CouponID = nil
	params.TotalPrice = subtotal
	if subtotal > 0 {
		return s.createPending(ctx, ev, params)
	}
	return s.createFree(ctx, ev, params)
}

func (s *Service) createFree(ctx context.Context, ev *domain.Event, params domain.NewBookingParams) (*CreateBookingResult, error) {
	params.Status = domain.BookingPaid
	params.TotalPrice = 0

	var b *domain.Booking
	err := s.insertWithFreshCode(ctx, ev.HuntCode, params, func(ctx context.Context, nb *domain.Booking) error {
		if _, err := s.inventory.DecrementSeats(ctx, nb.EventID, nb.TicketCount, nb.ID); err != nil {
			return err
		}
		if nb.CouponID != nil {
			if err := s.coupons.IncrementUsage(ctx, *nb.CouponID); err != nil {
				return err
			}
		}
		_, err := s.audit.Record(ctx, audit.Entry{
			BookingID: nb.ID,
			EventType: domain.AuditCreated,
			After:     nb.Snapshot(),
			Note:      "free booking fulfilled at creation",
			Actor:     customerActor(nb),
		})
		b = nb
		return err
	})
	if err != nil {
		return nil, err
	}

	s.loggerf("level=info msg=free booking created booking_id=%d code=%s", b.ID, b.BookingCode)
	s.notify(ctx, b)
	return &CreateBookingResult{Kind: ResultFree, BookingCode: b.BookingCode, Status: b.Status, Booking: b}, nil
}

func (s *Service) createPending(ctx context.Context, ev *domain.Event, params domain.NewBookingParams) (*CreateBookingResult, error) {
	params.Status = domain.BookingPending

	var b *domain.Booking
	err := s.insertWithFreshCode(ctx, ev.HuntCode, params, func(ctx context.Context, nb *domain.Booking) error {
		_, err := s.audit.Record(ctx, audit.Entry{
			BookingID: nb.ID,
			EventType: domain.AuditCreated,
			After:     nb.Snapshot(),
			Actor:     customerActor(nb),
		})
		b = nb
		return err
	})
	if err != nil {
		return nil, err
	}
	s.loggerf("level=info msg=pending booking created booking_id=%d code=%s total=%d", b.ID, b.BookingCode, b.TotalPrice)

	token, err := s.requestIntent(ctx, b)
	if err != nil {
		return nil, err
	}
	return &CreateBookingResult{
		Kind:               ResultPendingPayment,
		BookingCode:        b.BookingCode,
		Status:             b.Status,
		GatewayClientToken: token,
		Booking:            b,
	}, nil
}

// insertWithFreshCode inserts the booking and runs effects in one transaction. A code that
// lost a race to a concurrent insert is regenerated a bounded number of times.
func (s *Service) insertWithFreshCode(ctx context.Context, huntCode string, params domain.NewBookingParams, effects func(ctx context.Context, b *domain.Booking) error) error {
	for attempt := 1; ; attempt++ {
		code, err := s.codes.GenerateUniqueCode(ctx, huntCode)
		if err != nil {
			return err
		}
		params.BookingCode = code
		b, err := domain.NewBooking(params)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if b.Status == domain.BookingPaid {
			paidAt := s.now().UTC()
			b.PaidAt = &paidAt
		}

		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.bookings.Create(ctx, b); err != nil {
				return err
			}
			return effects(ctx, b)
		})
		if errors.Is(err, repository.ErrDuplicate) && attempt < maxInsertAttempts {
			s.loggerf("level=warn msg=booking code collided on insert code=%s attempt=%d", code, attempt)
			continue
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrCodeGenerationExhausted
		}
		return err
	}
}

func (s *Service) requestIntent(ctx context.Context, b *domain.Booking) (string, error) {
	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		BookingID:   b.ID,
		Amount:      b.TotalPrice,
		Currency:    s.currency,
		Description: "Hunt booking " + b.BookingCode,
		Metadata:    map[string]string{"booking_code": b.BookingCode},
	})
	if err != nil {
		s.loggerf("level=error msg=payment intent failed booking_id=%d code=%s err=%v", b.ID, b.BookingCode, err)
		return "", &IntentError{BookingCode: b.BookingCode, Err: fmt.Errorf("%w: %v", ErrGateway, err)}
	}

	ok, err := s.bookings.SetPaymentReference(ctx, b.ID, intent.PaymentReference)
	if err != nil {
		return "", err
	}
	if !ok {
		// a concurrent retry already attached an intent, or the booking left pending
		return "", ErrInvalidState
	}
	ref := intent.PaymentReference
	b.PaymentReference = &ref
	return intent.ClientToken, nil
}

// RetryPaymentIntent requests a new intent for a pending booking left without a reference.
func (s *Service) RetryPaymentIntent(ctx context.Context, bookingCode string) (*CreateBookingResult, error) {
	b, err := s.GetByCode(ctx, bookingCode)
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingPending || b.PaymentReference != nil {
		return nil, ErrInvalidState
	}

	token, err := s.requestIntent(ctx, b)
	if err != nil {
		return nil, err
	}
	return &CreateBookingResult{
		Kind:               ResultPendingPayment,
		BookingCode:        b.BookingCode,
		Status:             b.Status,
		GatewayClientToken: token,
		Booking:            b,
	}, nil
}

// HandlePaymentSucceeded fulfils the booking behind ref. Unknown references and
// redeliveries return nil; redeliveries are audited as duplicate-ignored.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, ref string) error {
	b, err := s.bookings.GetByPaymentReference(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		s.loggerf("level=warn msg=payment succeeded for unknown reference ref=%s", ref)
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status == domain.BookingFailed {
		return s.refundLateCapture(ctx, b, ref)
	}
	if b.Status != domain.BookingPending {
		return s.ignoreDuplicate(ctx, b, "payment_succeeded")
	}

	var (
		fulfilled *domain.Booking
		duplicate bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		ok, err := s.bookings.TransitionStatus(ctx, b.ID, domain.BookingPending, domain.BookingPaid, now)
		if err != nil {
			return err
		}
		if !ok {
			duplicate = true
			return nil
		}

		if _, err := s.inventory.DecrementSeats(ctx, b.EventID, b.TicketCount, b.ID); err != nil {
			return err
		}

		var note string
		if b.CouponID != nil {
			err := s.coupons.IncrementUsage(ctx, *b.CouponID)
			switch {
			case err == nil:
			case errors.Is(err, coupon.ErrCouponExhausted), errors.Is(err, coupon.ErrCouponNotFound):
				// the discounted amount is already captured; honour it without breaking the cap
				note = fmt.Sprintf("coupon %d not counted: %v", *b.CouponID, err)
			default:
				return err
			}
		}

		after := *b
		after.Status = domain.BookingPaid
		after.PaidAt = &now
		if _, err := s.audit.Record(ctx, audit.Entry{
			BookingID: b.ID,
			EventType: domain.AuditFulfilled,
			Before:    b.Snapshot(),
			After:     after.Snapshot(),
			Note:      note,
			Actor:     GatewayActor,
		}); err != nil {
			return err
		}
		fulfilled = &after
		return nil
	})
	if errors.Is(err, inventory.ErrInventoryExhausted) {
		return s.rejectFulfillment(ctx, b)
	}
	if err != nil {
		return err
	}
	if duplicate {
		return s.ignoreDuplicate(ctx, b, "payment_succeeded")
	}

	s.loggerf("level=info msg=booking fulfilled booking_id=%d code=%s", fulfilled.ID, fulfilled.BookingCode)
	s.notify(ctx, fulfilled)
	return nil
}

// rejectFulfillment fails a paid-for booking whose seats are gone and asks the gateway
// to return the money.
func (s *Service) rejectFulfillment(ctx context.Context, b *domain.Booking) error {
	var rejected bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.bookings.TransitionStatus(ctx, b.ID, domain.BookingPending, domain.BookingFailed, s.now().UTC())
		if err != nil || !ok {
			return err
		}
		rejected = true
		after := *b
		after.Status = domain.BookingFailed
		_, err = s.audit.Record(ctx, audit.Entry{
			BookingID: b.ID,
			EventType: domain.AuditFulfillmentRejected,
			Before:    b.Snapshot(),
			After:     after.Snapshot(),
			Note:      "seats exhausted at fulfillment; refund requested",
			Actor:     GatewayActor,
		})
		return err
	})
	if err != nil {
		return err
	}
	if !rejected {
		return s.ignoreDuplicate(ctx, b, "payment_succeeded")
	}

	s.loggerf("level=warn msg=fulfillment rejected, seats exhausted booking_id=%d event_id=%d", b.ID, b.EventID)
	if b.PaymentReference != nil && b.TotalPrice > 0 {
		if err := s.gateway.Refund(ctx, *b.PaymentReference, b.TotalPrice, refundKey(b.ID)); err != nil {
			s.loggerf("level=error msg=automatic refund failed, manual refund required booking_id=%d ref=%s err=%v", b.ID, *b.PaymentReference, err)
		}
	}
	return nil
}

// refundLateCapture handles a capture reported for a booking that already failed, e.g. a
// success arriving after a fail callback. The booking stays failed and the money is returned
// once; a refund already requested at fulfillment rejection is not repeated.
func (s *Service) refundLateCapture(ctx context.Context, b *domain.Booking, ref string) error {
	records, err := s.audit.ListForBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.EventType == domain.AuditFulfillmentRejected || r.EventType == domain.AuditLateCaptureRefunded {
			return s.ignoreDuplicate(ctx, b, "payment_succeeded")
		}
	}

	if b.TotalPrice > 0 {
		if err := s.gateway.Refund(ctx, ref, b.TotalPrice, refundKey(b.ID)); err != nil {
			// unacknowledged, so the gateway redelivers and the refund is retried
			s.loggerf("level=error msg=late capture refund failed, manual refund may be required booking_id=%d ref=%s err=%v", b.ID, ref, err)
			return fmt.Errorf("%w: %v", ErrGateway, err)
		}
	}

	s.loggerf("level=warn msg=payment captured for failed booking, refunded booking_id=%d ref=%s", b.ID, ref)
	_, err = s.audit.Record(ctx, audit.Entry{
		BookingID: b.ID,
		EventType: domain.AuditLateCaptureRefunded,
		Before:    b.Snapshot(),
		After:     b.Snapshot(),
		Note:      "payment captured after the booking failed; refund requested",
		Actor:     GatewayActor,
	})
	return err
}

// HandlePaymentFailed moves a pending booking to failed. A failed booking is terminal;
// the customer books again with a new code.
func (s *Service) HandlePaymentFailed(ctx context.Context, ref string) error {
	b, err := s.bookings.GetByPaymentReference(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		s.loggerf("level=warn msg=payment failed for unknown reference ref=%s", ref)
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != domain.BookingPending {
		return s.ignoreDuplicate(ctx, b, "payment_failed")
	}

	var duplicate bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.bookings.TransitionStatus(ctx, b.ID, domain.BookingPending, domain.BookingFailed, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			duplicate = true
			return nil
		}
		after := *b
		after.Status = domain.BookingFailed
		_, err = s.audit.Record(ctx, audit.Entry{
			BookingID: b.ID,
			EventType: domain.AuditPaymentFailed,
			Before:    b.Snapshot(),
			After:     after.Snapshot(),
			Actor:     GatewayActor,
		})
		return err
	})
	if err != nil {
		return err
	}
	if duplicate {
		return s.ignoreDuplicate(ctx, b, "payment_failed")
	}
	s.loggerf("level=info msg=booking payment failed booking_id=%d code=%s", b.ID, b.BookingCode)
	return nil
}

func (s *Service) ignoreDuplicate(ctx context.Context, b *domain.Booking, event string) error {
	current := b
	if fresh, err := s.bookings.GetByID(ctx, b.ID); err == nil {
		current = fresh
	}
	s.loggerf("level=info msg=duplicate event ignored event=%s booking_id=%d status=%s", event, b.ID, current.Status)
	_, err := s.audit.Record(ctx, audit.Entry{
		BookingID: b.ID,
		EventType: domain.AuditDuplicateIgnored,
		Before:    current.Snapshot(),
		After:     current.Snapshot(),
		Note:      event + " ignored in status " + string(current.Status),
		Actor:     GatewayActor,
	})
	return err
}

// ProcessRefund returns a paid booking's money and seats. The gateway is called first;
// if it fails the booking stays paid and the refund can be retried.
func (s *Service) ProcessRefund(ctx context.Context, bookingID int64, actor string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.Status != domain.BookingPaid {
		return nil, ErrInvalidState
	}

	if b.TotalPrice > 0 && b.PaymentReference != nil {
		if err := s.gateway.Refund(ctx, *b.PaymentReference, b.TotalPrice, refundKey(b.ID)); err != nil {
			s.loggerf("level=error msg=gateway refund failed booking_id=%d err=%v", b.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
	}

	var refunded *domain.Booking
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		ok, err := s.bookings.TransitionStatus(ctx, b.ID, domain.BookingPaid, domain.BookingRefunded, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		if _, err := s.inventory.IncrementSeats(ctx, b.EventID, b.TicketCount, b.ID); err != nil {
			return err
		}
		after := *b
		after.Status = domain.BookingRefunded
		after.RefundedAt = &now
		if _, err := s.audit.Record(ctx, audit.Entry{
			BookingID: b.ID,
			EventType: domain.AuditRefunded,
			Before:    b.Snapshot(),
			After:     after.Snapshot(),
			Actor:     actor,
		}); err != nil {
			return err
		}
		refunded = &after
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.loggerf("level=info msg=booking refunded booking_id=%d actor=%s", b.ID, actor)
	return refunded, nil
}

// BulkDeleteBookings audits every booking before deleting it, in one transaction.
// Paid bookings hold seats and must be refunded first, so they are skipped.
func (s *Service) BulkDeleteBookings(ctx context.Context, ids []int64, actor string) (*BulkDeleteResult, error) {
	result := &BulkDeleteResult{Deleted: []int64{}, Skipped: []SkippedBooking{}}
	seen := make(map[int64]struct{}, len(ids))

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		toDelete := make([]int64, 0, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			b, err := s.bookings.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				result.Skipped = append(result.Skipped, SkippedBooking{ID: id, Reason: "not found"})
				continue
			}
			if err != nil {
				return err
			}
			if b.Status == domain.BookingPaid {
				result.Skipped = append(result.Skipped, SkippedBooking{ID: id, Reason: "paid bookings must be refunded before deletion"})
				continue
			}

			if _, err := s.audit.Record(ctx, audit.Entry{
				BookingID: b.ID,
				EventType: domain.AuditBulkDeleted,
				Before:    b.Snapshot(),
				Actor:     actor,
			}); err != nil {
				return err
			}
			toDelete = append(toDelete, b.ID)
		}

		if _, err := s.bookings.Delete(ctx, toDelete); err != nil {
			return err
		}
		result.Deleted = toDelete
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.loggerf("level=info msg=bookings bulk deleted actor=%s deleted=%d skipped=%d", actor, len(result.Deleted), len(result.Skipped))
	return result, nil
}

// EditCustomer changes contact details only; status, price and seats are never editable.
func (s *Service) EditCustomer(ctx context.Context, bookingID int64, req EditCustomerRequest, actor string) (*domain.Booking, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	if fields := validator.Validate(req); fields != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, &domain.ValidationError{Fields: fields})
	}

	var edited *domain.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := s.bookings.UpdateCustomer(ctx, b.ID, req.CustomerName, req.CustomerEmail); err != nil {
			return err
		}
		after := *b
		after.CustomerName = req.CustomerName
		after.CustomerEmail = req.CustomerEmail
		if _, err := s.audit.Record(ctx, audit.Entry{
			BookingID: b.ID,
			EventType: domain.AuditManuallyEdited,
			Before:    b.Snapshot(),
			After:     after.Snapshot(),
			Note:      req.Note,
			Actor:     actor,
		}); err != nil {
			return err
		}
		edited = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	b, err := s.bookings.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return b, err
}

// AbandonStalePending fails pending bookings that never got a payment intent.
// Bookings holding a reference are left for the gateway to settle.
func (s *Service) AbandonStalePending(ctx context.Context, olderThan time.Duration, actor string) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	stale, err := s.bookings.ListStalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, err
	}

	abandoned := 0
	for i := range stale {
		b := &stale[i]
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			ok, err := s.bookings.TransitionStatus(ctx, b.ID, domain.BookingPending, domain.BookingFailed, s.now().UTC())
			if err != nil || !ok {
				return err
			}
			after := *b
			after.Status = domain.BookingFailed
			if _, err := s.audit.Record(ctx, audit.Entry{
				BookingID: b.ID,
				EventType: domain.AuditAbandoned,
				Before:    b.Snapshot(),
				After:     after.Snapshot(),
				Note:      fmt.Sprintf("no payment intent after %s", olderThan),
				Actor:     actor,
			}); err != nil {
				return err
			}
			abandoned++
			return nil
		})
		if err != nil {
			return abandoned, err
		}
	}
	return abandoned, nil
}

func (s *Service) notify(ctx context.Context, b *domain.Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendConfirmation(ctx, b); err != nil {
		s.loggerf("level=error msg=confirmation not sent booking_id=%d err=%v", b.ID, err)
	}
}

func refundKey(bookingID int64) string {
	return uuid.NewSHA1(refundNamespace, []byte("refund:"+strconv.FormatInt(bookingID, 10))).String()
}

func customerActor(b *domain.Booking) string {
	return "customer:" + b.CustomerEmail
}
