package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/tax"
)

// Totals is derived from the cart lines and a tax policy every time it is asked for.
// RoundedTotal equals TotalWithVat when the policy has no rounding step.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Vat           decimal.Decimal `json:"vat"`
	TotalWithVat  decimal.Decimal `json:"total_with_vat"`
	RoundedTotal  decimal.Decimal `json:"rounded_total"`
	RoundingDelta decimal.Decimal `json:"rounding_delta"`
	CountryCode   string          `json:"country_code"`
	Rounded       bool            `json:"rounded"`
}

// Payable is the amount the customer is charged.
func (t Totals) Payable() decimal.Decimal {
	return t.RoundedTotal
}

func computeTotals(lines []LineItem, policy tax.Policy) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}

	vat := subtotal.Mul(policy.VatRate)
	totalWithVat := subtotal.Add(vat)
	rounded := policy.Round(totalWithVat)

	return Totals{
		Subtotal:      subtotal,
		Vat:           vat,
		TotalWithVat:  totalWithVat,
		RoundedTotal:  rounded,
		RoundingDelta: rounded.Sub(totalWithVat),
		CountryCode:   policy.CountryCode,
		Rounded:       policy.Rounds(),
	}
}
