package fulfillment

import (
	"errors"
	"fmt"

	"huntbooking/internal/modules/codegen"
	"huntbooking/internal/modules/inventory"
)

var (
	ErrValidation              = errors.New("validation error")
	ErrNotFound                = errors.New("not found")
	ErrInvalidState            = errors.New("booking is not in a valid state for this operation")
	ErrGateway                 = errors.New("payment gateway error")
	ErrInventoryExhausted      = inventory.ErrInventoryExhausted
	ErrCodeGenerationExhausted = codegen.ErrCodeGenerationExhausted
)

// IntentError reports a gateway failure after the booking row was written.
// The booking stays pending without a payment reference and can be retried by code.
type IntentError struct {
	BookingCode string
	Err         error
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("payment intent for booking %s: %v", e.BookingCode, e.Err)
}

func (e *IntentError) Unwrap() error { return e.Err }
