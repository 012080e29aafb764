package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/tax"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

type Payment struct {
	Method   PaymentMethod   `json:"method"`
	Tendered decimal.Decimal `json:"tendered"`
}

// change returns what the customer gets back. Card payments never produce change.
func (p Payment) change(payable decimal.Decimal) (decimal.Decimal, error) {
	switch p.Method {
	case PaymentCash:
		if p.Tendered.LessThan(payable) {
			return decimal.Zero, &InsufficientTenderError{Tendered: p.Tendered, Payable: payable}
		}
		return p.Tendered.Sub(payable), nil
	case PaymentCard:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: method=%q", ErrInvalidPaymentMethod, p.Method)
	}
}

// CheckoutRequest is what a sale recorder persists.
type CheckoutRequest struct {
	Lines   []LineItem      `json:"lines"`
	Totals  Totals          `json:"totals"`
	Payment Payment         `json:"payment"`
	Change  decimal.Decimal `json:"change"`
}

type Receipt struct {
	SaleID  uuid.UUID       `json:"sale_id"`
	Request CheckoutRequest `json:"request"`
}

// Recorder persists a checkout request and returns the id of the recorded sale.
// It is called synchronously from Checkout.
type Recorder func(CheckoutRequest) (uuid.UUID, error)

// Checkout re-validates stock, settles the payment and hands the request to
// record. The cart is emptied and becomes Completed only when record succeeds;
// on any failure it goes back to Building with its lines untouched.
func (c *Cart) Checkout(
	policy tax.Policy,
	payment Payment,
	lookup StockLookup,
	record Recorder,
) (Receipt, error) {
	if c.state == StateCompleted {
		return Receipt{}, ErrCartCompleted
	}
	if len(c.order) == 0 {
		return Receipt{}, ErrEmptyCart
	}

	c.state = StateValidating
	receipt, err := c.checkout(policy, payment, lookup, record)
	if err != nil {
		c.state = StateBuilding
		return Receipt{}, err
	}

	c.lines = map[uuid.UUID]LineItem{}
	c.order = nil
	c.state = StateCompleted
	return receipt, nil
}

func (c *Cart) checkout(
	policy tax.Policy,
	payment Payment,
	lookup StockLookup,
	record Recorder,
) (Receipt, error) {
	if err := c.ValidateForCheckout(lookup); err != nil {
		return Receipt{}, err
	}

	totals := c.ComputeTotals(policy)
	change, err := payment.change(totals.Payable())
	if err != nil {
		return Receipt{}, err
	}

	request := CheckoutRequest{
		Lines:   c.Lines(),
		Totals:  totals,
		Payment: payment,
		Change:  change,
	}
	saleID, err := record(request)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed recording sale with error=%w", err)
	}
	return Receipt{SaleID: saleID, Request: request}, nil
}
