package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduler's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	Generation    prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gomandel_render_requests_total",
				Help: "Total number of render requests by kind and outcome",
			},
			[]string{"kind", "outcome"}, // outcome: completed, failed, superseded, cancelled
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gomandel_tile_cache_lookups_total",
				Help: "Total number of tile cache lookups by result",
			},
			[]string{"result"}, // result: hit, miss
		),
		Generation: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gomandel_view_generation",
			Help: "Current view generation",
		}),
	}
}

func (m *Metrics) request(kind requestKind, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) cache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) generation(g uint64) {
	if m == nil {
		return
	}
	m.Generation.Set(float64(g))
}
