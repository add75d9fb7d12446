package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/formhive/hookline/observability"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.DispatchedTotal.WithLabelValues("response.submitted").Inc()
	m.RecordDelivery("delivered", 0.05)
	m.RecordDelivery("failed_terminal", 1.2)
	m.PendingRetries.Set(3)

	if got := testutil.ToFloat64(m.DispatchedTotal.WithLabelValues("response.submitted")); got != 1 {
		t.Errorf("dispatched counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("delivered")); got != 1 {
		t.Errorf("delivered counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("failed_terminal")); got != 1 {
		t.Errorf("failed counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PendingRetries); got != 3 {
		t.Errorf("pending gauge = %v, want 3", got)
	}
}

func TestNewMetricsNilRegisterer(t *testing.T) {
	// A nil registerer skips registration but instruments still work.
	m := observability.NewMetrics(nil)
	m.RecordDelivery("retry_scheduled", 0.01)

	if got := testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues("retry_scheduled")); got != 1 {
		t.Errorf("counter = %v, want 1", got)
	}
}
