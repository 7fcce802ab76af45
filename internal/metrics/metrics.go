// Package metrics exposes Prometheus collectors for scan passes and the
// extraction controller. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pass triggers.
const (
	TriggerStart    = "start"
	TriggerMutation = "mutation"
	TriggerOneShot  = "oneshot"
)

// Skip reasons for candidates that did not become contacts.
const (
	SkipKnown   = "known"
	SkipInvalid = "invalid"
	SkipError   = "error"
)

// Metrics provides observability for scanning.
type Metrics struct {
	registry *prometheus.Registry

	// Passes counts completed passes by trigger and result.
	Passes *prometheus.CounterVec

	// PassLatency is the duration of one pass.
	PassLatency prometheus.Histogram

	// ContactsFound counts newly persisted contacts.
	ContactsFound prometheus.Counter

	// CandidatesSkipped counts email matches that were not persisted.
	CandidatesSkipped *prometheus.CounterVec

	// MutationBatches counts observed DOM mutation batches.
	MutationBatches prometheus.Counter

	// Scanning is 1 while the controller is active.
	Scanning prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Passes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactscan_passes_total",
			Help: "Total scan passes by trigger and result",
		}, []string{"trigger", "result"}), // result: "ok", "error"

		PassLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactscan_pass_duration_seconds",
			Help:    "Duration of a scan pass including the store round trip",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ContactsFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactscan_contacts_found_total",
			Help: "Total contacts newly persisted",
		}),

		CandidatesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactscan_candidates_skipped_total",
			Help: "Email matches that did not produce a new contact, by reason",
		}, []string{"reason"}),

		MutationBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactscan_mutation_batches_total",
			Help: "DOM mutation batches observed while scanning",
		}),

		Scanning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "contactscan_scanning",
			Help: "1 while automatic scanning is active",
		}),
	}
}

// ObservePass records one pass.
func (m *Metrics) ObservePass(trigger string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Passes.WithLabelValues(trigger, result).Inc()
	m.PassLatency.Observe(d.Seconds())
}

// AddFound records n new contacts.
func (m *Metrics) AddFound(n int) {
	if m != nil && n > 0 {
		m.ContactsFound.Add(float64(n))
	}
}

// IncSkipped records a skipped candidate.
func (m *Metrics) IncSkipped(reason string) {
	if m != nil {
		m.CandidatesSkipped.WithLabelValues(reason).Inc()
	}
}

// IncMutationBatch records an observed mutation batch.
func (m *Metrics) IncMutationBatch() {
	if m != nil {
		m.MutationBatches.Inc()
	}
}

// SetScanning records the controller state.
func (m *Metrics) SetScanning(active bool) {
	if m == nil {
		return
	}
	if active {
		m.Scanning.Set(1)
		return
	}
	m.Scanning.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and embedding.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
