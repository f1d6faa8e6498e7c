package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registrar.
type Metrics struct {
	// Mutation outcomes by operation (register, renew, update) and result
	// code (ok, already_taken, replay_detected, bad_signature, ...).
	MutationOutcome *prometheus.CounterVec

	// Availability answers by status.
	AvailabilityOutcome *prometheus.CounterVec

	// Mutation latency including signature verification and the store batch.
	MutationLatency *prometheus.HistogramVec

	// Nonce rows removed by opportunistic purges.
	NoncesPurged prometheus.Counter
}

// New creates all registrar metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MutationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hvn_registrar_mutations_total",
			Help: "Registrar mutation outcomes by operation and result code",
		}, []string{"operation", "outcome"}),

		AvailabilityOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hvn_registrar_availability_total",
			Help: "Availability lookups by resulting status",
		}, []string{"status"}),

		MutationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hvn_registrar_mutation_duration_seconds",
			Help:    "Duration of registrar mutations end to end",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		NoncesPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "hvn_registrar_nonces_purged_total",
			Help: "Expired nonce ledger rows removed opportunistically",
		}),
	}
}

func (m *Metrics) ObserveMutation(operation, outcome string, d time.Duration) {
	if m != nil {
		m.MutationOutcome.WithLabelValues(operation, outcome).Inc()
		m.MutationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveAvailability(status string) {
	if m != nil {
		m.AvailabilityOutcome.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) AddNoncesPurged(n int64) {
	if m != nil && n > 0 {
		m.NoncesPurged.Add(float64(n))
	}
}
