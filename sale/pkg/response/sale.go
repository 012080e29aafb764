package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Sale struct {
	CreatedAt       time.Time       `json:"created_at"`
	TerminalID      string          `json:"terminal_id"`
	CountryCode     string          `json:"country_code"`
	PaymentMethod   string          `json:"payment_method"`
	AuthorizationID string          `json:"authorization_id,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Vat             decimal.Decimal `json:"vat"`
	TotalWithVat    decimal.Decimal `json:"total_with_vat"`
	RoundedTotal    decimal.Decimal `json:"rounded_total"`
	RoundingDelta   decimal.Decimal `json:"rounding_delta"`
	Tendered        decimal.Decimal `json:"tendered"`
	Change          decimal.Decimal `json:"change"`
	Items           []SaleItem      `json:"items"`
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
}

type SaleItem struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Quantity  int             `json:"quantity"`
	ID        uuid.UUID       `json:"id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	ProductID uuid.UUID       `json:"product_id"`
}
