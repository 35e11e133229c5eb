package inventory

import (
	"context"
	"errors"
	"fmt"

	"huntbooking/internal/domain"
	"huntbooking/internal/repository"
)

// Service owns seat capacity. Every mutation is a conditional update plus a movement row,
// committed in the caller's transaction when there is one.
type Service struct {
	events  EventRepository
	tx      Transactor
	cache   Cache
	loggerf func(format string, args ...interface{})
}

// NewService accepts a nil cache; availability is then always read from the database.
func NewService(events EventRepository, tx Transactor, cache Cache, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{events: events, tx: tx, cache: cache, loggerf: loggerf}
}

// DecrementSeats takes count seats for bookingID and returns the seats left.
// It panics on a non-positive count.
func (s *Service) DecrementSeats(ctx context.Context, eventID int64, count int, bookingID int64) (int, error) {
	if count <= 0 {
		panic(fmt.Sprintf("inventory: DecrementSeats called with count %d", count))
	}

	var left int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.events.DecrementSeats(ctx, eventID, count)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.events.GetByID(ctx, eventID); errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			} else if err != nil {
				return err
			}
			return ErrInventoryExhausted
		}

		err = s.events.CreateMovement(ctx, &domain.InventoryMovement{
			EventID:   eventID,
			BookingID: bookingID,
			Kind:      domain.MovementDecrement,
			Count:     count,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyReserved
		}
		if err != nil {
			return err
		}

		left, err = s.events.SeatsAvailable(ctx, eventID)
		if err != nil {
			return err
		}
		s.invalidateAfterCommit(ctx, eventID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return left, nil
}

// IncrementSeats returns count seats taken by bookingID. A booking can be restored once,
// and only by the count it took. It panics on a non-positive count.
func (s *Service) IncrementSeats(ctx context.Context, eventID int64, count int, bookingID int64) (int, error) {
	if count <= 0 {
		panic(fmt.Sprintf("inventory: IncrementSeats called with count %d", count))
	}

	var left int
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		dec, err := s.events.GetMovement(ctx, bookingID, domain.MovementDecrement)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoPriorDecrement
		}
		if err != nil {
			return err
		}
		if dec.Count != count || dec.EventID != eventID {
			return ErrMovementMismatch
		}

		err = s.events.CreateMovement(ctx, &domain.InventoryMovement{
			EventID:   eventID,
			BookingID: bookingID,
			Kind:      domain.MovementIncrement,
			Count:     count,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyRestored
		}
		if err != nil {
			return err
		}

		ok, err := s.events.IncrementSeats(ctx, eventID, count)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEventNotFound
		}

		left, err = s.events.SeatsAvailable(ctx, eventID)
		if err != nil {
			return err
		}
		s.invalidateAfterCommit(ctx, eventID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return left, nil
}

// Availability returns a seat snapshot for display. It may lag behind a concurrent commit
// by at most the cache TTL when the invalidation itself fails.
func (s *Service) Availability(ctx context.Context, eventID int64) (int, error) {
	if s.cache != nil {
		seats, ok, err := s.cache.Get(ctx, eventID)
		if err != nil {
			s.loggerf("level=warn msg=availability cache read failed event_id=%d err=%v", eventID, err)
		} else if ok {
			return seats, nil
		}
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrEventNotFound
	}
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, eventID, ev.SeatsAvailable); err != nil {
			s.loggerf("level=warn msg=availability cache write failed event_id=%d err=%v", eventID, err)
		}
	}
	return ev.SeatsAvailable, nil
}

func (s *Service) invalidateAfterCommit(ctx context.Context, eventID int64) {
	if s.cache == nil {
		return
	}
	hookCtx := context.WithoutCancel(ctx)
	repository.AfterCommit(ctx, func() {
		if err := s.cache.Invalidate(hookCtx, eventID); err != nil {
			s.loggerf("level=warn msg=availability cache invalidate failed event_id=%d err=%v", eventID, err)
		}
	})
}
