package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pos/cart/pkg/tax"
)

func snapshot(price int64, stock int) Snapshot {
	return Snapshot{UnitPrice: decimal.NewFromInt(price), AvailableStock: stock}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(
		t,
		decimal.RequireFromString(expected).Equal(actual),
		append([]interface{}{"expected %s got %s", expected, actual}, msgAndArgs...)...,
	)
}

func TestAddLine(t *testing.T) {
	productA := uuid.New()

	tests := []struct {
		name             string
		snapshots        []Snapshot
		expectedErr      error
		expectedQuantity int
		expectedState    State
	}{
		{
			name:             "given new product should create line with quantity one",
			snapshots:        []Snapshot{snapshot(1000, 5)},
			expectedQuantity: 1,
			expectedState:    StateBuilding,
		},
		{
			name:             "given product already in cart should increment quantity",
			snapshots:        []Snapshot{snapshot(1000, 5), snapshot(1000, 5), snapshot(1000, 5)},
			expectedQuantity: 3,
			expectedState:    StateBuilding,
		},
		{
			name:          "given product without stock should fail out of stock",
			snapshots:     []Snapshot{snapshot(1000, 0)},
			expectedErr:   ErrOutOfStock,
			expectedState: StateEmpty,
		},
		{
			name:             "given increment over stock should fail stock exceeded and keep quantity",
			snapshots:        []Snapshot{snapshot(1000, 2), snapshot(1000, 2), snapshot(1000, 2)},
			expectedErr:      ErrStockExceeded,
			expectedQuantity: 2,
			expectedState:    StateBuilding,
		},
		{
			name:          "given negative price should fail invalid snapshot",
			snapshots:     []Snapshot{snapshot(-1, 2)},
			expectedErr:   ErrInvalidSnapshot,
			expectedState: StateEmpty,
		},
		{
			name:          "given negative stock should fail invalid snapshot",
			snapshots:     []Snapshot{snapshot(10, -2)},
			expectedErr:   ErrInvalidSnapshot,
			expectedState: StateEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := New()

			var err error
			for _, s := range tt.snapshots {
				err = cart.AddLine(productA, s)
			}

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedState, cart.State())

			line, ok := cart.Line(productA)
			if tt.expectedQuantity == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.expectedQuantity, line.Quantity)
			assert.Equal(t, 1, cart.Len(), "one line per product")
		})
	}
}

func TestAddLineStockExceededNamesProduct(t *testing.T) {
	productA := uuid.New()
	cart := New()
	require.NoError(t, cart.AddLine(productA, snapshot(500, 1)))

	err := cart.AddLine(productA, snapshot(500, 1))

	var stockErr *StockExceededError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, productA, stockErr.ProductID)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
}

func TestAddLineKeepsPriceSnapshot(t *testing.T) {
	productA := uuid.New()
	cart := New()
	require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))
	require.NoError(t, cart.AddLine(productA, snapshot(1500, 4)))

	line, _ := cart.Line(productA)
	assertDecimal(t, "1000", line.UnitPrice, "price is not re-fetched on increment")
	assert.Equal(t, 4, line.AvailableStock, "last observed stock is kept")
}

func TestSetQuantity(t *testing.T) {
	productA := uuid.New()

	t.Run("adding past available stock fails and keeps quantity", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))

		err := cart.SetQuantity(productA, 6)

		assert.ErrorIs(t, err, ErrStockExceeded)
		line, _ := cart.Line(productA)
		assert.Equal(t, 2, line.Quantity)
		assertDecimal(t, "2000", cart.ComputeTotals(tax.Policy{}).Subtotal)
	})

	t.Run("within stock updates quantity and line total", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))

		require.NoError(t, cart.SetQuantity(productA, 5))

		line, _ := cart.Line(productA)
		assert.Equal(t, 5, line.Quantity)
		assertDecimal(t, "5000", line.LineTotal())
	})

	t.Run("zero removes the line", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))

		require.NoError(t, cart.SetQuantity(productA, 0))

		_, ok := cart.Line(productA)
		assert.False(t, ok)
		assert.Equal(t, StateEmpty, cart.State())
	})

	t.Run("negative removes the line", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))

		require.NoError(t, cart.SetQuantity(productA, -3))

		assert.Equal(t, 0, cart.Len())
	})

	t.Run("absent product fails not found", func(t *testing.T) {
		cart := New()

		err := cart.SetQuantity(productA, 1)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, StateEmpty, cart.State())
	})
}

func TestRemoveLine(t *testing.T) {
	productA, productB, productC := uuid.New(), uuid.New(), uuid.New()
	cart := New()
	require.NoError(t, cart.AddLine(productA, snapshot(100, 5)))
	require.NoError(t, cart.AddLine(productB, snapshot(200, 5)))
	require.NoError(t, cart.AddLine(productC, snapshot(300, 5)))

	cart.RemoveLine(productB)
	cart.RemoveLine(uuid.New())

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, productA, lines[0].ProductID)
	assert.Equal(t, productC, lines[1].ProductID)
	assert.Equal(t, StateBuilding, cart.State())
}

func TestRefreshSnapshot(t *testing.T) {
	productA := uuid.New()

	t.Run("updates price and stock", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))

		require.NoError(t, cart.RefreshSnapshot(productA, snapshot(1200, 9)))

		line, _ := cart.Line(productA)
		assertDecimal(t, "1200", line.UnitPrice)
		assert.Equal(t, 9, line.AvailableStock)
	})

	t.Run("stock below held quantity fails and keeps line", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 5)))
		require.NoError(t, cart.SetQuantity(productA, 4))

		err := cart.RefreshSnapshot(productA, snapshot(1200, 3))

		assert.ErrorIs(t, err, ErrStockExceeded)
		line, _ := cart.Line(productA)
		assertDecimal(t, "1000", line.UnitPrice)
		assert.Equal(t, 5, line.AvailableStock)
	})

	t.Run("absent product fails not found", func(t *testing.T) {
		err := New().RefreshSnapshot(productA, snapshot(1, 1))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReset(t *testing.T) {
	cart := New()
	require.NoError(t, cart.AddLine(uuid.New(), snapshot(100, 5)))

	require.NoError(t, cart.Reset())

	assert.Equal(t, 0, cart.Len())
	assert.Equal(t, StateEmpty, cart.State())
}

func TestValidateForCheckout(t *testing.T) {
	productA, productB, productC := uuid.New(), uuid.New(), uuid.New()

	t.Run("stock dropped since add fails naming the product", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(1000, 3)))
		require.NoError(t, cart.SetQuantity(productA, 3))

		err := cart.ValidateForCheckout(func(uuid.UUID) int { return 2 })

		var stockErr *StockExceededError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, productA, stockErr.ProductID)
		assert.Equal(t, 2, stockErr.Available)
		line, _ := cart.Line(productA)
		assert.Equal(t, 3, line.Quantity, "cart unchanged")
	})

	t.Run("reports first violation in insertion order", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(100, 5)))
		require.NoError(t, cart.AddLine(productB, snapshot(100, 5)))
		require.NoError(t, cart.AddLine(productC, snapshot(100, 5)))
		current := map[uuid.UUID]int{productA: 5, productB: 0, productC: 0}

		for range 10 {
			err := cart.ValidateForCheckout(func(id uuid.UUID) int { return current[id] })

			var stockErr *StockExceededError
			require.ErrorAs(t, err, &stockErr)
			assert.Equal(t, productB, stockErr.ProductID)
		}
	})

	t.Run("enough stock passes", func(t *testing.T) {
		cart := New()
		require.NoError(t, cart.AddLine(productA, snapshot(100, 5)))

		assert.NoError(t, cart.ValidateForCheckout(func(uuid.UUID) int { return 1 }))
	})

	t.Run("missing lookup fails", func(t *testing.T) {
		assert.ErrorIs(t, New().ValidateForCheckout(nil), ErrMissingStockLookup)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "building", StateBuilding.String())
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "state(9)", State(9).String())
}
