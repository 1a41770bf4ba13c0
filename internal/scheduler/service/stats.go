package service

import (
	"context"
	"time"

	"github.com/nemanja-m/gomandel/internal/shared/logging"
)

type StatsSource interface {
	Stats() Stats
}

// StatsReporter logs scheduler and pool counters at a fixed interval.
type StatsReporter struct {
	interval time.Duration
	source   StatsSource
	logger   logging.Logger
}

func NewStatsReporter(interval time.Duration, source StatsSource, logger logging.Logger) *StatsReporter {
	return &StatsReporter{
		interval: interval,
		source:   source,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled. A non-positive interval disables
// reporting.
func (r *StatsReporter) Start(ctx context.Context) {
	if r.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *StatsReporter) report() {
	stats := r.source.Stats()
	r.logger.Info("Scheduler stats",
		"workers", stats.Pool.Workers,
		"idle", stats.Pool.Idle,
		"posted", stats.Pool.Posted,
		"pending", stats.Pool.Pending,
		"requests", stats.Requests,
		"tracked_jobs", stats.TrackedJobs,
		"cached_tiles", stats.CachedTiles,
		"generation", stats.Generation,
	)
}
