// Package jobs runs periodic background work for the server process.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

// StatsReporter refreshes the global gauges on a cron schedule.
type StatsReporter struct {
	service  ports.SummaryService
	metrics  ports.Metrics
	logger   zerolog.Logger
	schedule string
	timeout  time.Duration

	cron *cron.Cron
	mu   sync.Mutex
}

func NewStatsReporter(service ports.SummaryService, metrics ports.Metrics, schedule string, logger zerolog.Logger) *StatsReporter {
	return &StatsReporter{
		service:  service,
		metrics:  metrics,
		logger:   logger.With().Str("component", "stats_reporter").Logger(),
		schedule: schedule,
		timeout:  10 * time.Second,
	}
}

// Start runs one report immediately and then on every tick.
func (r *StatsReporter) Start() error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Run(context.Background()) }); err != nil {
		return fmt.Errorf("stats schedule %q: %w", r.schedule, err)
	}
	r.Run(context.Background())
	r.cron.Start()
	r.logger.Info().Str("schedule", r.schedule).Msg("stats reporter started")
	return nil
}

// Stop waits for a running report to finish or ctx to expire.
func (r *StatsReporter) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Run reports once. Overlapping runs are skipped.
func (r *StatsReporter) Run(ctx context.Context) {
	if !r.mu.TryLock() {
		r.logger.Debug().Msg("previous run still in progress, skipping")
		return
	}
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stats, err := r.service.GlobalStats(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to collect stats")
		return
	}
	r.metrics.SetGlobalStats(stats)
	r.logger.Info().
		Int64("summaries", stats.TotalSummaries).
		Int64("views", stats.TotalViews).
		Int64("reuses", stats.TotalReuses).
		Msg("stats refreshed")
}
