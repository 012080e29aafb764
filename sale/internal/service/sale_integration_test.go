package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pos/cart/pkg/engine"
	"github.com/Alturino/pos/internal/repository"
	"github.com/Alturino/pos/sale/pkg/request"
)

func TestRecordSaleAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	c := context.Background()
	redisClient, pool, pgContainer, redisContainer, queries, saleService := setup(t)(c)
	defer teardown(t)(redisClient, pool, pgContainer, redisContainer)

	tenantID := uuid.New()

	t.Run("given enough stock should persist sale and decrement stock", func(t *testing.T) {
		product := seedProduct(t, c, queries, tenantID, 1000, 5)

		sale, err := saleService.RecordSale(c, request.RecordSale{
			TenantID:    tenantID,
			TerminalID:  "caja-1",
			CountryCode: "CL",
			Checkout:    checkoutOf(t, product.ID, 1000, 2),
		})
		require.NoError(t, err)

		found, err := saleService.FindSaleById(c, tenantID, sale.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(2380).Equal(found.RoundedTotal))
		require.Len(t, found.Items, 1)
		assert.Equal(t, 2, found.Items[0].Quantity)

		updated, err := queries.FindProductById(c, repository.FindProductByIdParams{TenantID: tenantID, ID: product.ID})
		require.NoError(t, err)
		assert.Equal(t, int32(3), updated.Stock)

		sales, err := saleService.FindSales(c, tenantID, request.FindSales{TerminalID: "caja-1"})
		require.NoError(t, err)
		assert.Len(t, sales, 1)
	})

	t.Run("given two terminals racing for the last unit only one should record", func(t *testing.T) {
		product := seedProduct(t, c, queries, tenantID, 1500, 1)

		checkout := checkoutOf(t, product.ID, 1500, 1)
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = saleService.RecordSale(c, request.RecordSale{
					TenantID:    tenantID,
					TerminalID:  "caja-race",
					CountryCode: "CL",
					Checkout:    checkout,
				})
			}(i)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, engine.ErrStockExceeded)
				failures++
			}
		}
		assert.Equal(t, 1, failures)

		updated, err := queries.FindProductById(c, repository.FindProductByIdParams{TenantID: tenantID, ID: product.ID})
		require.NoError(t, err)
		assert.Equal(t, int32(0), updated.Stock)
	})

	t.Run("given another tenant's product should fail", func(t *testing.T) {
		product := seedProduct(t, c, queries, uuid.New(), 1000, 10)

		_, err := saleService.RecordSale(c, request.RecordSale{
			TenantID: tenantID,
			Checkout: checkoutOf(t, product.ID, 1000, 1),
		})
		assert.ErrorIs(t, err, engine.ErrStockExceeded)
	})
}
