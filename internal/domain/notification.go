package domain

import "time"

type NotificationKind string

const (
	NotifBookingConfirmed NotificationKind = "booking_confirmed"
)

// Notification is an outbox row picked up by the external email sender.
type Notification struct {
	ID        int64            `gorm:"primaryKey" json:"id"`
	BookingID int64            `gorm:"index;not null" json:"booking_id"`
	Recipient string           `gorm:"type:varchar(255);not null" json:"recipient"`
	Kind      NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Payload   any              `gorm:"serializer:json;type:text" json:"payload,omitempty"`
	SentAt    *time.Time       `json:"sent_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
