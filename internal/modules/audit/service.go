// Package audit keeps the append-only trail of booking state changes and admin actions.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"huntbooking/internal/domain"
	"huntbooking/internal/repository"
)

const SystemActor = "system"

type Entry struct {
	BookingID int64
	EventType domain.AuditEventType
	Before    *domain.BookingSnapshot
	After     *domain.BookingSnapshot
	Note      string
	Actor     string
}

type Service struct {
	repo AuditRepository
	feed Publisher
	now  func() time.Time
}

// NewService accepts a nil feed.
func NewService(repo AuditRepository, feed Publisher) *Service {
	return &Service{repo: repo, feed: feed, now: time.Now}
}

// Record appends one record in the caller's transaction, if any.
// The feed sees it only after that transaction commits.
func (s *Service) Record(ctx context.Context, e Entry) (*domain.AuditRecord, error) {
	actor := e.Actor
	if actor == "" {
		actor = SystemActor
	}
	rec := &domain.AuditRecord{
		ID:          uuid.New(),
		BookingID:   e.BookingID,
		EventType:   e.EventType,
		BeforeState: e.Before,
		AfterState:  e.After,
		Note:        e.Note,
		Actor:       actor,
		Timestamp:   s.now().UTC(),
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append audit record: %w", err)
	}

	if s.feed != nil {
		repository.AfterCommit(ctx, func() { s.feed.Publish(rec) })
	}
	return rec, nil
}

func (s *Service) ListForBooking(ctx context.Context, bookingID int64) ([]domain.AuditRecord, error) {
	return s.repo.ListByBooking(ctx, bookingID)
}
