package inventory

import "errors"

var (
	ErrInventoryExhausted = errors.New("not enough seats available")
	ErrEventNotFound      = errors.New("event not found")
	ErrAlreadyReserved    = errors.New("seats already decremented for booking")
	ErrNoPriorDecrement   = errors.New("no seat decrement recorded for booking")
	ErrMovementMismatch   = errors.New("restore count differs from decremented count")
	ErrAlreadyRestored    = errors.New("seats already restored for booking")
)
