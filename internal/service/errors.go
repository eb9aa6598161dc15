package service

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced to callers. The HTTP layer maps these to status
// codes; anything that doesn't match one of them is reported as an opaque
// internal error.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRelease    = errors.New("release exceeds reserved stock")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrProductInactive   = errors.New("product is inactive")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrValidation        = errors.New("validation failed")
)

// InsufficientStockError reports the stock actually available at the time
// the reservation was refused.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available=%d, requested=%d",
		e.ProductID, e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
