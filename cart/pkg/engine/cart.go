// Package engine holds the quick-sale cart of a single terminal session: its lines,
// the totals derived from them and the checkout rules.
//
// A Cart performs no I/O. Callers fetch catalog snapshots and fresh stock figures
// themselves and hand plain values to it. Every operation that fails leaves the cart
// exactly as it was, so a rejected call can be retried without inspecting state.
//
// A Cart is not safe for concurrent use.
package engine

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Alturino/pos/cart/pkg/tax"
)

type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateValidating
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateValidating:
		return "validating"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StockLookup returns the current stock of a product. Unknown products must
// report 0.
type StockLookup func(productID uuid.UUID) int

type Cart struct {
	lines map[uuid.UUID]LineItem
	order []uuid.UUID
	state State
}

func New() *Cart {
	return &Cart{lines: map[uuid.UUID]LineItem{}, state: StateEmpty}
}

func (c *Cart) State() State {
	return c.state
}

func (c *Cart) Len() int {
	return len(c.order)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []LineItem {
	lines := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, c.lines[id])
	}
	return lines
}

func (c *Cart) Line(productID uuid.UUID) (LineItem, bool) {
	line, ok := c.lines[productID]
	return line, ok
}

// AddLine adds one unit of the product. A product already in the cart has its
// quantity incremented instead of getting a second line.
func (c *Cart) AddLine(productID uuid.UUID, snapshot Snapshot) error {
	if c.state == StateCompleted {
		return ErrCartCompleted
	}
	if err := snapshot.validate(); err != nil {
		return err
	}
	if snapshot.AvailableStock <= 0 {
		return fmt.Errorf("%w: productId=%s", ErrOutOfStock, productID)
	}

	line, ok := c.lines[productID]
	if !ok {
		c.lines[productID] = LineItem{
			ProductID:      productID,
			UnitPrice:      snapshot.UnitPrice,
			Quantity:       1,
			AvailableStock: snapshot.AvailableStock,
		}
		c.order = append(c.order, productID)
		c.state = StateBuilding
		return nil
	}

	requested := line.Quantity + 1
	if requested > snapshot.AvailableStock {
		return &StockExceededError{
			ProductID: productID,
			Requested: requested,
			Available: snapshot.AvailableStock,
		}
	}
	line.Quantity = requested
	line.AvailableStock = snapshot.AvailableStock
	c.lines[productID] = line
	c.state = StateBuilding
	return nil
}

// SetQuantity replaces the quantity of an existing line, checked against the stock
// observed when the line was added. A quantity of zero or less removes the line.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if c.state == StateCompleted {
		return ErrCartCompleted
	}
	if quantity <= 0 {
		c.RemoveLine(productID)
		return nil
	}

	line, ok := c.lines[productID]
	if !ok {
		return fmt.Errorf("%w: productId=%s", ErrNotFound, productID)
	}
	if quantity > line.AvailableStock {
		return &StockExceededError{
			ProductID: productID,
			Requested: quantity,
			Available: line.AvailableStock,
		}
	}
	line.Quantity = quantity
	c.lines[productID] = line
	c.state = StateBuilding
	return nil
}

// RemoveLine is a no-op for products that are not in the cart.
func (c *Cart) RemoveLine(productID uuid.UUID) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = slices.Delete(c.order, i, i+1)
			break
		}
	}
	if len(c.order) == 0 {
		c.state = StateEmpty
	}
}

// RefreshSnapshot replaces the price and stock held by a line with a newer read.
func (c *Cart) RefreshSnapshot(productID uuid.UUID, snapshot Snapshot) error {
	if c.state == StateCompleted {
		return ErrCartCompleted
	}
	if err := snapshot.validate(); err != nil {
		return err
	}

	line, ok := c.lines[productID]
	if !ok {
		return fmt.Errorf("%w: productId=%s", ErrNotFound, productID)
	}
	if line.Quantity > snapshot.AvailableStock {
		return &StockExceededError{
			ProductID: productID,
			Requested: line.Quantity,
			Available: snapshot.AvailableStock,
		}
	}
	line.UnitPrice = snapshot.UnitPrice
	line.AvailableStock = snapshot.AvailableStock
	c.lines[productID] = line
	return nil
}

// Reset drops every line so the session can start over.
func (c *Cart) Reset() error {
	if c.state == StateCompleted {
		return ErrCartCompleted
	}
	c.lines = map[uuid.UUID]LineItem{}
	c.order = nil
	c.state = StateEmpty
	return nil
}

// ComputeTotals has no side effects; calling it twice without a mutation in
// between returns identical totals.
func (c *Cart) ComputeTotals(policy tax.Policy) Totals {
	return computeTotals(c.Lines(), policy)
}

// ValidateForCheckout checks every line against a fresh stock lookup and reports
// the first line, in insertion order, whose quantity no longer fits.
func (c *Cart) ValidateForCheckout(lookup StockLookup) error {
	if lookup == nil {
		return ErrMissingStockLookup
	}
	for _, id := range c.order {
		line := c.lines[id]
		current := lookup(id)
		if line.Quantity > current {
			return &StockExceededError{
				ProductID: id,
				Requested: line.Quantity,
				Available: current,
			}
		}
	}
	return nil
}
