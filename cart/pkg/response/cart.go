package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/engine"
)

type Cart struct {
	CreatedAt   time.Time     `json:"created_at"`
	TerminalID  string        `json:"terminal_id"`
	CountryCode string        `json:"country_code"`
	State       string        `json:"state"`
	Lines       []Line        `json:"lines"`
	Totals      engine.Totals `json:"totals"`
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
}

type Line struct {
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	Quantity       int             `json:"quantity"`
	AvailableStock int             `json:"available_stock"`
	ProductID      uuid.UUID       `json:"product_id"`
}

type Checkout struct {
	Method          engine.PaymentMethod `json:"method"`
	AuthorizationID string               `json:"authorization_id,omitempty"`
	Payable         decimal.Decimal      `json:"payable"`
	Tendered        decimal.Decimal      `json:"tendered"`
	Change          decimal.Decimal      `json:"change"`
	Lines           []Line               `json:"lines"`
	Totals          engine.Totals        `json:"totals"`
	SaleID          uuid.UUID            `json:"sale_id"`
	CartID          uuid.UUID            `json:"cart_id"`
}

func Lines(items []engine.LineItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal(),
			Quantity:       item.Quantity,
			AvailableStock: item.AvailableStock,
			ProductID:      item.ProductID,
		})
	}
	return lines
}
