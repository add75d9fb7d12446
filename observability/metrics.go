// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for hookline deliveries.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the metric instruments for hookline.
type Metrics struct {
	// DispatchedTotal counts domain events accepted by Dispatch, by event type.
	DispatchedTotal *prometheus.CounterVec

	// DeliveriesTotal counts delivery attempts by outcome
	// ("delivered", "retry_scheduled", "failed_terminal").
	DeliveriesTotal *prometheus.CounterVec

	// DeliveryLatency observes per-attempt HTTP latency in seconds.
	DeliveryLatency prometheus.Histogram

	// PendingRetries tracks rows currently awaiting an automatic retry.
	PendingRetries prometheus.Gauge
}

// NewMetrics creates hookline metric instruments and registers them with reg.
// Pass prometheus.DefaultRegisterer for standalone usage.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookline_events_dispatched_total",
			Help: "Domain events accepted for webhook fan-out.",
		}, []string{"event"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookline_deliveries_total",
			Help: "Delivery attempts by outcome.",
		}, []string{"status"}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hookline_delivery_latency_seconds",
			Help:    "Per-attempt webhook HTTP latency.",
			Buckets: prometheus.DefBuckets,
		}),
		PendingRetries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hookline_pending_retries",
			Help: "Delivery attempts currently awaiting automatic retry.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.DispatchedTotal, m.DeliveriesTotal, m.DeliveryLatency, m.PendingRetries)
	}

	return m
}

// RecordDelivery records a delivery attempt with the given outcome and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabelValues(status).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}
