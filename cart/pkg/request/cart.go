package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/engine"
)

type CreateCart struct {
	CountryCode string `validate:"omitempty,iso3166_1_alpha2" json:"country_code"`
}

type AddItem struct {
	ProductID uuid.UUID `validate:"required" json:"product_id"`
}

// SetQuantity removes the line when Quantity is zero or negative.
type SetQuantity struct {
	Quantity *int `validate:"required" json:"quantity"`
}

type Checkout struct {
	Method       engine.PaymentMethod `validate:"required,oneof=cash card"                          json:"method"`
	Tendered     decimal.Decimal      `validate:"money"                                             json:"tendered"`
	ApprovalCode string               `validate:"required_if=Method card,omitempty,alphanum,max=12" json:"approval_code"`
}

func (r Checkout) Payment() engine.Payment {
	return engine.Payment{Method: r.Method, Tendered: r.Tendered}
}
