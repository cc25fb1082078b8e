package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCartEmpty       = errors.New("cart_empty")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrProductNotFound = errors.New("invalid_product")
	ErrCartLineGone    = errors.New("cart_line_not_found")
	ErrAlertNotFound   = errors.New("alert_not_found")

	// ErrReservationNotFound covers both a missing reservation and a
	// reservation owned by someone else, so callers cannot probe for
	// other users' reservation ids.
	ErrReservationNotFound = errors.New("invalid_reservation")

	ErrReservationInactive = errors.New("reservation_inactive")
	ErrReservationExpired  = errors.New("reservation_expired")
)

// InsufficientStockError names the first product whose requested quantity
// exceeds available stock, whether from the advisory check at reservation
// time or the authoritative one at settlement.
type InsufficientStockError struct {
	ProductID string
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient_stock:%s", e.ProductID)
}
