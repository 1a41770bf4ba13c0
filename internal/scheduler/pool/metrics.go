package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the pool's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	PostedJobs  prometheus.Gauge
	PendingJobs prometheus.Gauge
	IdleWorkers prometheus.Gauge
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)

	return &Metrics{
		PostedJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gomandel_pool_posted_jobs",
			Help: "Number of jobs currently held by workers",
		}),
		PendingJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gomandel_pool_pending_jobs",
			Help: "Number of jobs waiting for an idle worker",
		}),
		IdleWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gomandel_pool_idle_workers",
			Help: "Number of idle workers",
		}),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gomandel_pool_jobs_total",
				Help: "Total number of jobs by outcome",
			},
			[]string{"outcome"},
		),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gomandel_pool_job_duration_seconds",
			Help:    "Time a worker spent computing one job",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8), // 0.5ms to ~8s
		}),
	}
}

func (m *Metrics) observe(posted, pending, idle int) {
	if m == nil {
		return
	}
	m.PostedJobs.Set(float64(posted))
	m.PendingJobs.Set(float64(pending))
	m.IdleWorkers.Set(float64(idle))
}

func (m *Metrics) count(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.JobsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) duration(d time.Duration) {
	if m == nil {
		return
	}
	m.JobDuration.Observe(d.Seconds())
}
