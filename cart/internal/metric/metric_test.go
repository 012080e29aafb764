package metric

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Alturino/pos/cart/pkg/engine"
)

func TestResult(t *testing.T) {
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultRejected, Result(&engine.StockExceededError{ProductID: uuid.New()}))
	assert.Equal(t, ResultRejected, Result(&engine.InsufficientTenderError{}))
	assert.Equal(t, ResultFailed, Result(errors.New("connection reset")))
}

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Operation("add_item", nil)
	m.Operation("add_item", engine.ErrOutOfStock)
	m.Checkout(engine.PaymentCash, "CL", decimal.NewFromInt(1200), nil)
	m.Checkout(engine.PaymentCash, "CL", decimal.NewFromInt(500), engine.ErrInsufficientTender)
	m.ActiveCarts(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add_item", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("add_item", ResultRejected)))
	assert.Equal(t, 1200.0, testutil.ToFloat64(m.revenue.WithLabelValues("CL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("cash", ResultRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeCarts))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("add_item", nil)
		m.ActiveCarts(1)
	})
}
