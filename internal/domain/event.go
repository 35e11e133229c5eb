package domain

import (
	"strings"
	"time"

	"huntbooking/internal/pkg/validator"
)

// Event is a bookable hunt with finite seat inventory. UnitPrice is in minor units.
type Event struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	HuntCode       string    `gorm:"type:varchar(16);index" json:"hunt_code" validate:"omitempty,alphanum,max=16"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title" validate:"required"`
	SeatsAvailable int       `gorm:"not null;check:seats_available >= 0" json:"seats_available" validate:"gte=0"`
	UnitPrice      int64     `gorm:"not null" json:"unit_price" validate:"gte=0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Event) TableName() string { return "events" }

func NewEvent(huntCode, title string, seats int, unitPrice int64) (*Event, error) {
	e := &Event{
		HuntCode:       strings.ToUpper(strings.TrimSpace(huntCode)),
		Title:          strings.TrimSpace(title),
		SeatsAvailable: seats,
		UnitPrice:      unitPrice,
	}
	if fields := validator.Validate(e); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}
	return e, nil
}

type MovementKind string

const (
	MovementDecrement MovementKind = "decrement"
	MovementIncrement MovementKind = "increment"
)

// InventoryMovement is the companion ledger entry for every seat mutation.
// A booking has at most one movement of each kind.
type InventoryMovement struct {
	ID        int64        `gorm:"primaryKey" json:"id"`
	EventID   int64        `gorm:"index;not null" json:"event_id"`
	BookingID int64        `gorm:"uniqueIndex:idx_movement_booking_kind;not null" json:"booking_id"`
	Kind      MovementKind `gorm:"type:varchar(16);uniqueIndex:idx_movement_booking_kind;not null" json:"kind"`
	Count     int          `gorm:"not null" json:"count"`
	CreatedAt time.Time    `json:"created_at"`
}

func (InventoryMovement) TableName() string { return "inventory_movements" }
