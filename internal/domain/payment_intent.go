package domain

import "time"

type PaymentIntentStatus string

const (
	IntentCreated  PaymentIntentStatus = "created"
	IntentPending  PaymentIntentStatus = "pending"
	IntentPaid     PaymentIntentStatus = "paid"
	IntentFailed   PaymentIntentStatus = "failed"
	IntentRefunded PaymentIntentStatus = "refunded"
)

// PaymentIntent is the gateway adapter's own record of a hosted checkout.
type PaymentIntent struct {
	ID            int64               `gorm:"primaryKey" json:"id"`
	BookingID     int64               `gorm:"index;not null" json:"booking_id"`
	OutSum        string              `gorm:"type:varchar(32);not null" json:"out_sum"`
	Currency      string              `gorm:"type:varchar(3);not null" json:"currency"`
	InvID         int64               `gorm:"uniqueIndex;not null" json:"inv_id"`
	Description   string              `gorm:"type:text" json:"description"`
	Status        PaymentIntentStatus `gorm:"type:varchar(20);default:'created';index" json:"status"`
	Signature     string              `gorm:"type:varchar(128)" json:"signature"`
	PaymentURL    string              `gorm:"type:text" json:"payment_url"`
	ShpParams     string              `gorm:"type:text" json:"shp_params"`
	ResultRawBody string              `gorm:"type:text" json:"result_raw_body"`
	FailRawBody   string              `gorm:"type:text" json:"fail_raw_body"`
	FailureReason string              `gorm:"type:text" json:"failure_reason"`
	RefundRequest string              `gorm:"type:varchar(64)" json:"refund_request,omitempty"`
	PaidAt        *time.Time          `json:"paid_at"`
	RefundedAt    *time.Time          `json:"refunded_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }
