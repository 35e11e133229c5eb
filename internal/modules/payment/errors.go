package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrAmountMismatch   = errors.New("amount mismatch")
	ErrNotConfigured    = errors.New("payment gateway credentials are not configured")
	ErrUnknownReference = errors.New("unknown payment reference")
	ErrNotRefundable    = errors.New("payment is not in a refundable state")
	ErrRefundRejected   = errors.New("refund rejected by gateway")
)
