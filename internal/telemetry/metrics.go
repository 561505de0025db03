// Package telemetry exposes the Prometheus metrics of the sync engine.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "offersync"

// Metrics holds every collector the engine records into. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	JobsCreated       prometheus.Counter
	JobsFinished      *prometheus.CounterVec
	ItemsProcessed    *prometheus.CounterVec
	ChunkDuration     *prometheus.HistogramVec
	ProviderFallbacks *prometheus.CounterVec
	ProviderRetries   *prometheus.CounterVec
	ImageFallbacks    *prometheus.CounterVec
	Charges           *prometheus.CounterVec
	ChargesSkipped    *prometheus.CounterVec
	TokenRefreshes    *prometheus.CounterVec
	QueueRejected     prometheus.Counter
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry
// keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{gatherer: reg}

	m.JobsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_created_total",
		Help:      "Bulk jobs accepted",
	})
	m.JobsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_finished_total",
		Help:      "Bulk jobs finalized by terminal status",
	}, []string{"status"})
	m.ItemsProcessed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_processed_total",
		Help:      "Offers processed by mode and outcome kind",
	}, []string{"mode", "kind"})
	m.ChunkDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chunk_duration_seconds",
		Help:      "Wall time of one chunk",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"})
	m.ProviderFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_fallbacks_total",
		Help:      "Text generations that fell back to the secondary provider",
	}, []string{"primary", "reason"})
	m.ProviderRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_retries_total",
		Help:      "Provider calls retried after a transient failure",
	}, []string{"provider"})
	m.ImageFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_fallbacks_total",
		Help:      "Image edits that degraded to a plain re-encode",
	}, []string{"edit"})
	m.Charges = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "charges_total",
		Help:      "Wallet charges by ledger type and result",
	}, []string{"type", "result"})
	m.ChargesSkipped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "charges_skipped_total",
		Help:      "Charges skipped because an identical completed entry exists",
	}, []string{"type"})
	m.TokenRefreshes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "marketplace_token_refreshes_total",
		Help:      "Marketplace token refresh attempts by result",
	}, []string{"result"})
	m.QueueRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_queue_rejected_total",
		Help:      "Job submissions rejected because the runner queue was full",
	})
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) JobCreated() {
	if m == nil {
		return
	}
	m.JobsCreated.Inc()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) ItemProcessed(mode, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "success"
	}
	m.ItemsProcessed.WithLabelValues(mode, kind).Inc()
}

func (m *Metrics) ObserveChunk(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.ChunkDuration.WithLabelValues(mode).Observe(seconds)
}

func (m *Metrics) ProviderFallback(primary, reason string) {
	if m == nil {
		return
	}
	m.ProviderFallbacks.WithLabelValues(primary, reason).Inc()
}

func (m *Metrics) ProviderRetry(provider string) {
	if m == nil {
		return
	}
	m.ProviderRetries.WithLabelValues(provider).Inc()
}

func (m *Metrics) ImageFallback(edit string) {
	if m == nil {
		return
	}
	m.ImageFallbacks.WithLabelValues(edit).Inc()
}

func (m *Metrics) Charge(ledgerType, result string) {
	if m == nil {
		return
	}
	m.Charges.WithLabelValues(ledgerType, result).Inc()
}

func (m *Metrics) ChargeSkipped(ledgerType string) {
	if m == nil {
		return
	}
	m.ChargesSkipped.WithLabelValues(ledgerType).Inc()
}

func (m *Metrics) TokenRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) QueueRejection() {
	if m == nil {
		return
	}
	m.QueueRejected.Inc()
}
