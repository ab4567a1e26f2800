package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "foodorder"

const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
	ResultMissing = "not_found"
)

// Metrics 訂單服務的 prometheus 指標
// nil *Metrics 可以直接呼叫，所有方法都不做事
type Metrics struct {
	CheckoutsTotal       *prometheus.CounterVec
	OrdersCreatedTotal   prometheus.Counter
	CheckoutDuration     prometheus.Histogram
	PaymentUpdatesTotal  *prometheus.CounterVec
	PublishFailuresTotal prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkouts_total",
				Help:      "Total number of checkout requests by result",
			},
			[]string{"result"},
		),
		OrdersCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total number of orders committed",
			},
		),
		CheckoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkout_duration_seconds",
				Help:      "Duration of checkout processing",
				Buckets:   prometheus.DefBuckets,
			},
		),
		PaymentUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_updates_total",
				Help:      "Total number of payment reconciliations by result",
			},
			[]string{"result"},
		),
		PublishFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_event_publish_failures_total",
				Help:      "Total number of order created events that failed to publish",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.CheckoutsTotal,
			m.OrdersCreatedTotal,
			m.CheckoutDuration,
			m.PaymentUpdatesTotal,
			m.PublishFailuresTotal,
		)
	}
	return m
}

func (m *Metrics) ObserveCheckout(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CheckoutsTotal.WithLabelValues(result).Inc()
	m.CheckoutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) AddOrdersCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrdersCreatedTotal.Add(float64(n))
}

func (m *Metrics) IncPaymentUpdate(result string) {
	if m == nil {
		return
	}
	m.PaymentUpdatesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailuresTotal.Inc()
}
