package inventory

import (
	"context"

	"huntbooking/internal/domain"
)

type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	SeatsAvailable(ctx context.Context, id int64) (int, error)
	DecrementSeats(ctx context.Context, id int64, count int) (bool, error)
	IncrementSeats(ctx context.Context, id int64, count int) (bool, error)
	CreateMovement(ctx context.Context, m *domain.InventoryMovement) error
	GetMovement(ctx context.Context, bookingID int64, kind domain.MovementKind) (*domain.InventoryMovement, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Cache holds seat snapshots for the availability endpoint. It is never consulted by mutations.
type Cache interface {
	Get(ctx context.Context, eventID int64) (int, bool, error)
	Set(ctx context.Context, eventID int64, seats int) error
	Invalidate(ctx context.Context, eventID int64) error
}
