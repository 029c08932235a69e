// Package metrics holds the prometheus collectors for the swap core.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dex"

// Outcome labels.
const (
	Applied = "applied"
	Stale   = "stale"
	Failed  = "failed"
	Success = "success"
)

// SwapMetrics groups the collectors used by the form and the sequencer. A nil
// *SwapMetrics records nothing.
type SwapMetrics struct {
	derivations *prometheus.CounterVec
	reserves    *prometheus.CounterVec
	submissions *prometheus.CounterVec
	ledger      *prometheus.HistogramVec
	sessions    prometheus.Gauge
}

var (
	swapOnce     sync.Once
	swapRegistry *SwapMetrics
)

// Swap returns the lazily registered swap metrics.
func Swap() *SwapMetrics {
	swapOnce.Do(func() {
		swapRegistry = &SwapMetrics{
			derivations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "form",
				Name:      "derivations_total",
				Help:      "Dependent-field derivations segmented by edited side and outcome.",
			}, []string{"side", "outcome"}),
			reserves: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "form",
				Name:      "reserve_fetches_total",
				Help:      "Reserve refetches segmented by outcome.",
			}, []string{"outcome"}),
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sequencer",
				Name:      "submissions_total",
				Help:      "Swap submissions segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			ledger: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sequencer",
				Name:      "ledger_call_duration_seconds",
				Help:      "Latency of state-mutating ledger calls including confirmation.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			sessions: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "service",
				Name:      "sessions",
				Help:      "Open swap form sessions.",
			}),
		}
		prometheus.MustRegister(
			swapRegistry.derivations,
			swapRegistry.reserves,
			swapRegistry.submissions,
			swapRegistry.ledger,
			swapRegistry.sessions,
		)
	})
	return swapRegistry
}

// Derivation records a derivation result for the edited side.
func (m *SwapMetrics) Derivation(side, outcome string) {
	if m == nil {
		return
	}
	m.derivations.WithLabelValues(side, outcome).Inc()
}

func (m *SwapMetrics) ReserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.reserves.WithLabelValues(outcome).Inc()
}

func (m *SwapMetrics) Submission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

// ObserveLedger records how long method took to confirm.
func (m *SwapMetrics) ObserveLedger(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.ledger.WithLabelValues(method).Observe(d.Seconds())
}

func (m *SwapMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *SwapMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
