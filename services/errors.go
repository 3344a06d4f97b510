package services

import (
	"errors"

	"nust-bites/checkout"
)

var (
	ErrNotOwner          = errors.New("resource belongs to another account")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrStatusConflict    = errors.New("order status changed concurrently")

	ErrCartInvalid = errors.New("cart cannot be ordered")
	ErrCartChanged = errors.New("cart changed since it was verified")

	ErrAlreadyHasRestaurant = errors.New("account already owns a restaurant")
	ErrOrderCodeTaken       = errors.New("order code already in use")
	ErrInvalidWindow        = errors.New("online window needs distinct start and end")
	ErrInvalidOptions       = errors.New("option and choice names must be unique")
)

// CartError carries the validation result that made an order fail, so the
// client can show exactly which lines changed.
type CartError struct {
	Err    error
	Result *checkout.Result
}

func (e *CartError) Error() string { return e.Err.Error() + ": " + e.Result.Message }

func (e *CartError) Unwrap() error { return e.Err }
