// Package tax resolves the VAT rate and cash rounding rule of a country.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

const CountryChile = "CL"

// Policy is the VAT rate of a country plus the step payable totals are rounded up
// to. A zero RoundingStep means totals are charged as computed.
type Policy struct {
	CountryCode  string          `json:"country_code"`
	VatRate      decimal.Decimal `json:"vat_rate"`
	RoundingStep decimal.Decimal `json:"rounding_step"`
}

func (p Policy) Rounds() bool {
	return p.RoundingStep.IsPositive()
}

// Round returns total rounded up to the next multiple of RoundingStep.
func (p Policy) Round(total decimal.Decimal) decimal.Decimal {
	if !p.Rounds() {
		return total
	}
	return total.Div(p.RoundingStep).Ceil().Mul(p.RoundingStep)
}

type Table struct {
	policies map[string]Policy
}

func NewTable(policies ...Policy) Table {
	t := Table{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		p.CountryCode = normalize(p.CountryCode)
		t.policies[p.CountryCode] = p
	}
	return t
}

func DefaultTable() Table {
	return NewTable(Policy{
		CountryCode:  CountryChile,
		VatRate:      decimal.RequireFromString("0.19"),
		RoundingStep: decimal.NewFromInt(10),
	})
}

// Lookup never fails: unmapped countries get a zero rate and no rounding.
func (t Table) Lookup(countryCode string) Policy {
	code := normalize(countryCode)
	if p, ok := t.policies[code]; ok {
		return p
	}
	return Policy{CountryCode: code, VatRate: decimal.Zero, RoundingStep: decimal.Zero}
}

func (t Table) Countries() []string {
	codes := make([]string, 0, len(t.policies))
	for code := range t.policies {
		codes = append(codes, code)
	}
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
