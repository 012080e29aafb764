package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrStockExceeded        = errors.New("requested quantity exceeds available stock")
	ErrInsufficientTender   = errors.New("tendered amount is below the payable total")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrNotFound             = errors.New("product is not in the cart")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCartCompleted        = errors.New("cart is already checked out")
	ErrInvalidSnapshot      = errors.New("invalid product snapshot")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMissingStockLookup   = errors.New("missing stock lookup")
)

// StockExceededError names the product whose requested quantity does not fit the
// available stock. It matches ErrStockExceeded with errors.Is.
type StockExceededError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf(
		"%s: productId=%s requested=%d available=%d",
		ErrStockExceeded,
		e.ProductID,
		e.Requested,
		e.Available,
	)
}

func (e *StockExceededError) Is(target error) bool {
	return target == ErrStockExceeded
}

// InsufficientTenderError carries how much cash is missing. It matches
// ErrInsufficientTender with errors.Is.
type InsufficientTenderError struct {
	Tendered decimal.Decimal
	Payable  decimal.Decimal
}

func (e *InsufficientTenderError) Error() string {
	return fmt.Sprintf(
		"%s: tendered=%s payable=%s",
		ErrInsufficientTender,
		e.Tendered,
		e.Payable,
	)
}

func (e *InsufficientTenderError) Is(target error) bool {
	return target == ErrInsufficientTender
}

func (e *InsufficientTenderError) Missing() decimal.Decimal {
	return e.Payable.Sub(e.Tendered)
}
