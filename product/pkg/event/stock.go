package event

import (
	"time"

	"github.com/google/uuid"
)

// StockUpdated is published on the stock.updated channel whenever stock of one or
// more products changes outside the product service.
type StockUpdated struct {
	OccurredAt time.Time   `json:"occurred_at"`
	SaleID     uuid.UUID   `json:"sale_id,omitempty"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}
