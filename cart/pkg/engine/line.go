package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time read of a product's price and stock.
type Snapshot struct {
	UnitPrice      decimal.Decimal `json:"unit_price"`
	AvailableStock int             `json:"available_stock"`
}

func (s Snapshot) validate() error {
	if s.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative unit price=%s", ErrInvalidSnapshot, s.UnitPrice)
	}
	if s.AvailableStock < 0 {
		return fmt.Errorf("%w: negative available stock=%d", ErrInvalidSnapshot, s.AvailableStock)
	}
	return nil
}

// LineItem is one product in the cart. UnitPrice and AvailableStock are the values
// observed when the line was added or last refreshed.
type LineItem struct {
	ProductID      uuid.UUID       `json:"product_id"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	AvailableStock int             `json:"available_stock"`
}

func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
