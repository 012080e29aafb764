package request

import (
	"github.com/google/uuid"

	"github.com/Alturino/pos/cart/pkg/engine"
)

type RecordSale struct {
	TerminalID      string
	CountryCode     string
	AuthorizationID string
	Checkout        engine.CheckoutRequest
	TenantID        uuid.UUID
}

type FindSales struct {
	TerminalID string `validate:"max=64"        json:"terminal_id"`
	Limit      int32  `validate:"gte=0,lte=200" json:"limit"`
	Offset     int32  `validate:"gte=0"         json:"offset"`
}
