package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pos/cart/internal/metric"
	"github.com/Alturino/pos/cart/internal/payment"
	"github.com/Alturino/pos/cart/internal/session"
	"github.com/Alturino/pos/cart/pkg/engine"
	"github.com/Alturino/pos/cart/pkg/request"
	"github.com/Alturino/pos/cart/pkg/tax"
	inErrors "github.com/Alturino/pos/internal/errors"
	"github.com/Alturino/pos/internal/retry"
	saleRequest "github.com/Alturino/pos/sale/pkg/request"
	saleResponse "github.com/Alturino/pos/sale/pkg/response"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]engine.Snapshot
	stockErr error
}

func (f *fakeCatalog) GetSnapshot(_ context.Context, _ uuid.UUID, productID uuid.UUID) (engine.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.products[productID]
	if !ok {
		return engine.Snapshot{}, inErrors.ErrProductNotFound
	}
	return snapshot, nil
}

func (f *fakeCatalog) CurrentStock(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stockErr != nil {
		return nil, f.stockErr
	}
	stock := map[uuid.UUID]int{}
	for _, id := range ids {
		stock[id] = f.products[id].AvailableStock
	}
	return stock, nil
}

func (f *fakeCatalog) setStock(id uuid.UUID, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.products[id]
	snapshot.AvailableStock = stock
	f.products[id] = snapshot
}

type fakeRecorder struct {
	calls []saleRequest.RecordSale
	errs  []error
}

func (f *fakeRecorder) RecordSale(_ context.Context, param saleRequest.RecordSale) (saleResponse.Sale, error) {
	f.calls = append(f.calls, param)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return saleResponse.Sale{}, err
		}
	}
	return saleResponse.Sale{ID: uuid.New(), TenantID: param.TenantID}, nil
}

type terminalSpy struct {
	payment.Terminal
	voided []string
}

func (t *terminalSpy) Void(c context.Context, id string) error {
	t.voided = append(t.voided, id)
	return t.Terminal.Void(c, id)
}

type fixture struct {
	catalog  *fakeCatalog
	recorder *fakeRecorder
	terminal *terminalSpy
	service  *CartService
	tenantID uuid.UUID
	milk     uuid.UUID
	bread    uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	milk, bread := uuid.New(), uuid.New()
	catalog := &fakeCatalog{products: map[uuid.UUID]engine.Snapshot{
		milk:  {UnitPrice: decimal.NewFromInt(1005), AvailableStock: 5},
		bread: {UnitPrice: decimal.NewFromInt(333), AvailableStock: 0},
	}}
	recorder := &fakeRecorder{}
	terminal := &terminalSpy{Terminal: payment.NewManualTerminal()}
	svc := NewCartService(
		session.NewStore(),
		catalog,
		recorder,
		terminal,
		metric.New(prometheus.NewRegistry()),
		tax.DefaultTable(),
		tax.CountryChile,
		retry.WithMaxAttempts(3),
		retry.WithExponentialBackOff(time.Millisecond, time.Millisecond),
	)
	return fixture{
		catalog:  catalog,
		recorder: recorder,
		terminal: terminal,
		service:  svc,
		tenantID: uuid.New(),
		milk:     milk,
		bread:    bread,
	}
}

func (f fixture) cartWithMilk(t *testing.T) uuid.UUID {
	t.Helper()
	cart := f.service.CreateCart(context.Background(), f.tenantID, "caja-1", request.CreateCart{})
	_, err := f.service.AddItem(context.Background(), f.tenantID, cart.ID, f.milk)
	require.NoError(t, err)
	return cart.ID
}

func TestCashCheckoutDropsCart(t *testing.T) {
	f := newFixture(t)
	c := context.Background()
	cartID := f.cartWithMilk(t)

	totals, err := f.service.Totals(c, f.tenantID, cartID)
	require.NoError(t, err)
	assert.Equal(t, "1195.95", totals.TotalWithVat.String())
	assert.Equal(t, "1200", totals.RoundedTotal.String())

	res, err := f.service.Checkout(c, f.tenantID, cartID, request.Checkout{
		Method:   engine.PaymentCash,
		Tendered: decimal.NewFromInt(2000),
	})
	require.NoError(t, err)
	assert.Equal(t, "800", res.Change.String())
	assert.Equal(t, "1200", res.Payable.String())
	assert.NotEqual(t, uuid.Nil, res.SaleID)

	require.Len(t, f.recorder.calls, 1)
	recorded := f.recorder.calls[0]
	assert.Equal(t, "caja-1", recorded.TerminalID)
	assert.Equal(t, tax.CountryChile, recorded.CountryCode)
	assert.Empty(t, recorded.AuthorizationID)

	_, err = f.service.FindCart(c, f.tenantID, cartID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
	assert.Zero(t, f.service.Sessions().Len())
}

func TestCardCheckoutAuthorizesPayable(t *testing.T) {
	f := newFixture(t)
	cartID := f.cartWithMilk(t)

	res, err := f.service.Checkout(context.Background(), f.tenantID, cartID, request.Checkout{
		Method:       engine.PaymentCard,
		ApprovalCode: "482913",
	})
	require.NoError(t, err)
	assert.Contains(t, res.AuthorizationID, "482913")
	assert.Equal(t, "1200", res.Tendered.String())
	assert.True(t, res.Change.IsZero())
	require.Len(t, f.recorder.calls, 1)
	assert.Equal(t, res.AuthorizationID, f.recorder.calls[0].AuthorizationID)
}

func TestCheckoutFailures(t *testing.T) {
	tests := []struct {
		name          string
		arrange       func(f fixture)
		param         request.Checkout
		expected      error
		recordCalls   int
		voids         int
		expectedLines int
	}{
		{
			name:          "given cash below rounded total should reject without recording",
			param:         request.Checkout{Method: engine.PaymentCash, Tendered: decimal.NewFromInt(1190)},
			expected:      engine.ErrInsufficientTender,
			expectedLines: 1,
		},
		{
			name:          "given stock sold elsewhere should fail the barrier",
			arrange:       func(f fixture) { f.catalog.setStock(f.milk, 0) },
			param:         request.Checkout{Method: engine.PaymentCash, Tendered: decimal.NewFromInt(2000)},
			expected:      engine.ErrStockExceeded,
			expectedLines: 1,
		},
		{
			name:          "given card without approval code should fail",
			param:         request.Checkout{Method: engine.PaymentCard},
			expected:      payment.ErrApprovalRequired,
			expectedLines: 1,
		},
		{
			name: "given recorder shortage should void without retrying",
			arrange: func(f fixture) {
				f.recorder.errs = []error{&engine.StockExceededError{ProductID: f.milk, Requested: 1}}
			},
			param:         request.Checkout{Method: engine.PaymentCard, ApprovalCode: "1111"},
			expected:      engine.ErrStockExceeded,
			recordCalls:   1,
			voids:         1,
			expectedLines: 1,
		},
		{
			name: "given recorder down should retry then void",
			arrange: func(f fixture) {
				down := errors.New("connection refused")
				f.recorder.errs = []error{down, down, down}
			},
			param:         request.Checkout{Method: engine.PaymentCard, ApprovalCode: "2222"},
			recordCalls:   3,
			voids:         1,
			expectedLines: 1,
		},
		{
			name:          "given catalog down should fail before charging",
			arrange:       func(f fixture) { f.catalog.stockErr = errors.New("connection refused") },
			param:         request.Checkout{Method: engine.PaymentCard, ApprovalCode: "3333"},
			expectedLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := context.Background()
			cartID := f.cartWithMilk(t)
			if tt.arrange != nil {
				tt.arrange(f)
			}

			_, err := f.service.Checkout(c, f.tenantID, cartID, tt.param)
			require.Error(t, err)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
			}
			assert.Len(t, f.recorder.calls, tt.recordCalls)
			assert.Len(t, f.terminal.voided, tt.voids)

			cart, err := f.service.FindCart(c, f.tenantID, cartID)
			require.NoError(t, err)
			assert.Len(t, cart.Lines, tt.expectedLines)
			assert.Equal(t, engine.StateBuilding.String(), cart.State)
		})
	}
}

func TestCheckoutRetriesTransientFailure(t *testing.T) {
	f := newFixture(t)
	cartID := f.cartWithMilk(t)
	f.recorder.errs = []error{errors.New("deadlock detected"), nil}

	_, err := f.service.Checkout(context.Background(), f.tenantID, cartID, request.Checkout{
		Method:   engine.PaymentCash,
		Tendered: decimal.NewFromInt(1200),
	})
	require.NoError(t, err)
	assert.Len(t, f.recorder.calls, 2)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	cart := f.service.CreateCart(context.Background(), f.tenantID, "caja-1", request.CreateCart{})

	_, err := f.service.Checkout(context.Background(), f.tenantID, cart.ID, request.Checkout{
		Method:   engine.PaymentCash,
		Tendered: decimal.NewFromInt(1000),
	})
	assert.ErrorIs(t, err, engine.ErrEmptyCart)
	assert.Empty(t, f.recorder.calls)
}

func TestCartOperations(t *testing.T) {
	f := newFixture(t)
	c := context.Background()
	cartID := f.cartWithMilk(t)

	_, err := f.service.AddItem(c, f.tenantID, cartID, f.bread)
	assert.ErrorIs(t, err, engine.ErrOutOfStock)
	_, err = f.service.AddItem(c, f.tenantID, cartID, uuid.New())
	assert.ErrorIs(t, err, inErrors.ErrProductNotFound)

	cart, err := f.service.AddItem(c, f.tenantID, cartID, f.milk)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	_, err = f.service.SetQuantity(c, f.tenantID, cartID, f.milk, 6)
	var exceeded *engine.StockExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 5, exceeded.Available)

	cart, err = f.service.SetQuantity(c, f.tenantID, cartID, f.milk, 5)
	require.NoError(t, err)
	assert.Equal(t, "5025", cart.Totals.Subtotal.String())

	f.catalog.setStock(f.milk, 3)
	_, err = f.service.RefreshItem(c, f.tenantID, cartID, f.milk)
	assert.ErrorIs(t, err, engine.ErrStockExceeded)
	_, err = f.service.Validate(c, f.tenantID, cartID)
	assert.ErrorIs(t, err, engine.ErrStockExceeded)

	cart, err = f.service.SetQuantity(c, f.tenantID, cartID, f.milk, 3)
	require.NoError(t, err)
	cart, err = f.service.RefreshItem(c, f.tenantID, cartID, f.milk)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Lines[0].AvailableStock)
	_, err = f.service.Validate(c, f.tenantID, cartID)
	assert.NoError(t, err)

	cart, err = f.service.RemoveItem(c, f.tenantID, cartID, f.milk)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, engine.StateEmpty.String(), cart.State)

	_, err = f.service.AddItem(c, f.tenantID, cartID, f.milk)
	require.NoError(t, err)
	cart, err = f.service.Reset(c, f.tenantID, cartID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	require.NoError(t, f.service.DeleteCart(c, f.tenantID, cartID))
	assert.ErrorIs(t, f.service.DeleteCart(c, f.tenantID, cartID), inErrors.ErrCartNotFound)
}

func TestCartsAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	cartID := f.cartWithMilk(t)

	_, err := f.service.FindCart(context.Background(), uuid.New(), cartID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
	_, err = f.service.AddItem(context.Background(), uuid.New(), cartID, f.milk)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
}

func TestCreateCartUsesRequestedCountry(t *testing.T) {
	f := newFixture(t)
	c := context.Background()
	cart := f.service.CreateCart(c, f.tenantID, "caja-1", request.CreateCart{CountryCode: "US"})
	f.catalog.products[f.milk] = engine.Snapshot{UnitPrice: decimal.NewFromInt(333), AvailableStock: 5}

	res, err := f.service.AddItem(c, f.tenantID, cart.ID, f.milk)
	require.NoError(t, err)
	assert.Equal(t, "US", res.CountryCode)
	assert.Equal(t, "333", res.Totals.RoundedTotal.String())
	assert.False(t, res.Totals.Rounded)
}
