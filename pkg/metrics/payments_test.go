package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncBuild("sol")
	m.IncBuild("sol")
	m.IncConfirmation("webhook")
	m.IncBatch("ok")
	m.IncSkipped()

	if got := testutil.ToFloat64(m.builds.WithLabelValues("sol")); got != 2 {
		t.Fatalf("expected 2 builds, got %v", got)
	}
	if got := testutil.ToFloat64(m.confirmations.WithLabelValues("webhook")); got != 1 {
		t.Fatalf("expected 1 confirmation, got %v", got)
	}
	if got := testutil.ToFloat64(m.skipped); got != 1 {
		t.Fatalf("expected 1 skipped, got %v", got)
	}
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var m *PaymentMetrics
	m.IncBuild("sol")
	m.IncConfirmation("poller")
	m.IncBatch("ok")
	m.IncSkipped()

	m = NewPaymentMetrics(nil)
	m.IncBuild("usdc")
}
