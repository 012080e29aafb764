package listener

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pos/internal/constants"
	"github.com/Alturino/pos/product/internal/cache"
	"github.com/Alturino/pos/product/pkg/event"
	"github.com/Alturino/pos/product/pkg/response"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client, *cache.ProductCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, cache.NewProductCache(client, time.Minute)
}

func TestHandleEvictsProducts(t *testing.T) {
	mr, client, productCache := setup(t)
	c := context.Background()
	product := response.Product{ID: uuid.New(), TenantID: uuid.New(), Price: decimal.NewFromInt(990), Stock: 3}
	require.NoError(t, productCache.Set(c, product))

	payload, err := json.Marshal(event.StockUpdated{TenantID: product.TenantID, ProductIDs: []uuid.UUID{product.ID}})
	require.NoError(t, err)

	listener := NewStockListener(client, productCache, constants.ChannelStockUpdated)
	require.NoError(t, listener.Handle(c, string(payload)))
	assert.False(t, mr.Exists(cache.ProductKey(product.TenantID, product.ID)))

	assert.Error(t, listener.Handle(c, "{"))
}

func TestRunEvictsOnPublishedEvent(t *testing.T) {
	mr, client, productCache := setup(t)
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	product := response.Product{ID: uuid.New(), TenantID: uuid.New(), Price: decimal.NewFromInt(990), Stock: 3}
	require.NoError(t, productCache.Set(c, product))

	listener := NewStockListener(client, productCache, constants.ChannelStockUpdated)
	done := make(chan error, 1)
	go func() { done <- listener.Run(c) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(constants.ChannelStockUpdated)[constants.ChannelStockUpdated] == 1
	}, 5*time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(event.StockUpdated{TenantID: product.TenantID, ProductIDs: []uuid.UUID{product.ID}})
	require.NoError(t, err)
	require.NoError(t, client.Publish(c, constants.ChannelStockUpdated, payload).Err())

	assert.Eventually(t, func() bool {
		return !mr.Exists(cache.ProductKey(product.TenantID, product.ID))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}
