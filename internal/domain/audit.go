package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditEventType string

const (
	AuditCreated             AuditEventType = "created"
	AuditFulfilled           AuditEventType = "fulfilled"
	AuditRefunded            AuditEventType = "refunded"
	AuditBulkDeleted         AuditEventType = "bulk-deleted"
	AuditManuallyEdited      AuditEventType = "manually-edited"
	AuditDuplicateIgnored    AuditEventType = "duplicate-ignored"
	AuditPaymentFailed       AuditEventType = "payment-failed"
	AuditFulfillmentRejected AuditEventType = "fulfillment-rejected"
	AuditAbandoned           AuditEventType = "abandoned"
	AuditLateCaptureRefunded AuditEventType = "late-capture-refunded"
)

// AuditRecord is append-only and deliberately has no foreign key to bookings:
// records outlive deleted bookings.
type AuditRecord struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID   int64            `gorm:"index;not null" json:"booking_id"`
	EventType   AuditEventType   `gorm:"type:varchar(32);index;not null" json:"event_type"`
	BeforeState *BookingSnapshot `gorm:"serializer:json;type:text" json:"before_state,omitempty"`
	AfterState  *BookingSnapshot `gorm:"serializer:json;type:text" json:"after_state,omitempty"`
	Note        string           `gorm:"type:text" json:"note,omitempty"`
	Actor       string           `gorm:"type:varchar(255);not null" json:"actor"`
	Timestamp   time.Time        `gorm:"index;not null" json:"timestamp"`
}

func (AuditRecord) TableName() string { return "audit_records" }
