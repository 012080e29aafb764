package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/pos/cart/pkg/engine"
	inErrors "github.com/Alturino/pos/internal/errors"
)

func TestStoreIsTenantScoped(t *testing.T) {
	store := NewStore()
	tenantID := uuid.New()
	session := store.Create(tenantID, "caja-1", "CL")

	got, err := store.Get(tenantID, session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, engine.StateEmpty, got.cart.State())

	_, err = store.Get(uuid.New(), session.ID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
	assert.ErrorIs(t, store.Delete(uuid.New(), session.ID), inErrors.ErrCartNotFound)

	require.NoError(t, store.Delete(tenantID, session.ID))
	_, err = store.Get(tenantID, session.ID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
	assert.Zero(t, store.Len())
}

func TestStoreSweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore()
	store.now = func() time.Time { return now }

	idle := store.Create(uuid.New(), "caja-1", "CL")
	now = now.Add(90 * time.Minute)
	fresh := store.Create(uuid.New(), "caja-2", "CL")
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 1, store.Sweep(time.Hour))
	_, err := store.Get(idle.TenantID, idle.ID)
	assert.ErrorIs(t, err, inErrors.ErrCartNotFound)
	_, err = store.Get(fresh.TenantID, fresh.ID)
	assert.NoError(t, err)
}

func TestSessionDoSerialisesOperations(t *testing.T) {
	store := NewStore()
	session := store.Create(uuid.New(), "caja-1", "CL")
	productID := uuid.New()
	snapshot := engine.Snapshot{UnitPrice: decimal.NewFromInt(500), AvailableStock: 1000}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = session.Do(func(cart *engine.Cart) error {
				return cart.AddLine(productID, snapshot)
			})
		}()
	}
	wg.Wait()

	line, ok := session.cart.Line(productID)
	require.True(t, ok)
	assert.Equal(t, 50, line.Quantity)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	store := NewStore()
	store.Create(uuid.New(), "caja-1", "CL")
	c, cancel := context.WithCancel(context.Background())

	remaining := make(chan int, 16)
	done := make(chan struct{})
	go func() {
		store.RunSweeper(c, 5*time.Millisecond, -time.Hour, func(n int) { remaining <- n })
		close(done)
	}()

	assert.Eventually(t, func() bool {
		select {
		case n := <-remaining:
			return n == 0
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
