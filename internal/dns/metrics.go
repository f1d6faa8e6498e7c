package dns

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks resolver traffic. All methods are nil-safe so tests can run
// without a registry.
type Metrics struct {
	Resolutions *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hvn_dns_resolutions_total",
			Help: "Resolutions served, by resulting status.",
		}, []string{"status"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "hvn_dns_cache_hits_total",
			Help: "Resolutions answered from the response cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "hvn_dns_cache_misses_total",
			Help: "Resolutions that required a store read.",
		}),
	}
}

func (m *Metrics) ObserveResolution(status string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}
