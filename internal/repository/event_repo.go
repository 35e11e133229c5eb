package repository

import (
	"context"

	"gorm.io/gorm"

	"huntbooking/internal/domain"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	return translate(conn(ctx, r.db).Create(e).Error)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	var e domain.Event
	if err := conn(ctx, r.db).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *EventRepository) SeatsAvailable(ctx context.Context, id int64) (int, error) {
	var seats int
	err := conn(ctx, r.db).Model(&domain.Event{}).Where("id = ?", id).Select("seats_available").Scan(&seats).Error
	return seats, err
}

// DecrementSeats reports false when the event lacks count seats (or does not exist).
func (r *EventRepository) DecrementSeats(ctx context.Context, id int64, count int) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.Event{}).
		Where("id = ? AND seats_available >= ?", id, count).
		Update("seats_available", gorm.Expr("seats_available - ?", count))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *EventRepository) IncrementSeats(ctx context.Context, id int64, count int) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.Event{}).
		Where("id = ?", id).
		Update("seats_available", gorm.Expr("seats_available + ?", count))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *EventRepository) CreateMovement(ctx context.Context, m *domain.InventoryMovement) error {
	return translate(conn(ctx, r.db).Create(m).Error)
}

func (r *EventRepository) GetMovement(ctx context.Context, bookingID int64, kind domain.MovementKind) (*domain.InventoryMovement, error) {
	var m domain.InventoryMovement
	if err := conn(ctx, r.db).Where("booking_id = ? AND kind = ?", bookingID, kind).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}
