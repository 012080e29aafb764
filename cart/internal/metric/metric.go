package metric

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/Alturino/pos/cart/pkg/engine"
	inErrors "github.com/Alturino/pos/internal/errors"
)

const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

type Metrics struct {
	operations  *prometheus.CounterVec
	checkouts   *prometheus.CounterVec
	revenue     *prometheus.CounterVec
	activeCarts prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations by operation and result.",
		}, []string{"operation", "result"}),
		checkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "cart",
			Name:      "checkouts_total",
			Help:      "Checkouts by payment method and result.",
		}, []string{"method", "result"}),
		revenue: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: "cart",
			Name:      "checkout_amount_total",
			Help:      "Payable amount of completed checkouts by country.",
		}, []string{"country"}),
		activeCarts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pos",
			Subsystem: "cart",
			Name:      "active_sessions",
			Help:      "Open cart sessions.",
		}),
	}
}

// Result classifies err: business rule violations are rejections, anything else
// is a failure.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, engine.ErrOutOfStock),
		errors.Is(err, engine.ErrStockExceeded),
		errors.Is(err, engine.ErrInsufficientTender),
		errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrNotFound),
		errors.Is(err, engine.ErrEmptyCart),
		errors.Is(err, engine.ErrCartCompleted),
		errors.Is(err, engine.ErrInvalidSnapshot),
		errors.Is(err, engine.ErrInvalidPaymentMethod),
		errors.Is(err, inErrors.ErrCartNotFound),
		errors.Is(err, inErrors.ErrProductNotFound):
		return ResultRejected
	default:
		return ResultFailed
	}
}

func (m *Metrics) Operation(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, Result(err)).Inc()
}

func (m *Metrics) Checkout(method engine.PaymentMethod, country string, payable decimal.Decimal, err error) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(string(method), Result(err)).Inc()
	if err == nil {
		m.revenue.WithLabelValues(country).Add(payable.InexactFloat64())
	}
}

func (m *Metrics) ActiveCarts(n int) {
	if m == nil {
		return
	}
	m.activeCarts.Set(float64(n))
}
