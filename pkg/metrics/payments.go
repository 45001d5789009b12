package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records counters for the payment engine.
type PaymentMetrics struct {
	builds        *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	batches       *prometheus.CounterVec
	skipped       prometheus.Counter
}

// NewPaymentMetrics registers payment metrics on the provided registerer.
// A nil registerer yields a no-op recorder, which tests rely on.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_builds_total",
		Help: "Unsigned payment transactions built, by asset.",
	}, []string{"asset"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmations applied to the ledger, by source.",
	}, []string{"source"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_batches_total",
		Help: "Webhook batches received, by outcome.",
	}, []string{"result"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_skipped_total",
		Help: "Webhook batch elements skipped as malformed or unmatched.",
	})
	reg.MustRegister(builds, confirmations, batches, skipped)
	return &PaymentMetrics{
		builds:        builds,
		confirmations: confirmations,
		batches:       batches,
		skipped:       skipped,
	}
}

// IncBuild increments the build counter for the given asset kind.
func (p *PaymentMetrics) IncBuild(asset string) {
	if p == nil || p.builds == nil {
		return
	}
	p.builds.WithLabelValues(asset).Inc()
}

// IncConfirmation increments the confirmation counter for the given source
// ("poller" or "webhook").
func (p *PaymentMetrics) IncConfirmation(source string) {
	if p == nil || p.confirmations == nil {
		return
	}
	p.confirmations.WithLabelValues(source).Inc()
}

// IncBatch increments the webhook batch counter for the given result
// ("ok", "unauthorized", "malformed").
func (p *PaymentMetrics) IncBatch(result string) {
	if p == nil || p.batches == nil {
		return
	}
	p.batches.WithLabelValues(result).Inc()
}

// IncSkipped increments the skipped-element counter.
func (p *PaymentMetrics) IncSkipped() {
	if p == nil || p.skipped == nil {
		return
	}
	p.skipped.Inc()
}
