package metrics

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/foxzi/smartreach/internal/models"
)

// StatsProvider provides pipeline statistics for metrics
type StatsProvider interface {
	Stats(ctx context.Context, now time.Time) (*models.PipelineStats, error)
}

// Collector periodically refreshes system and pipeline gauges
type Collector struct {
	metrics   *Metrics
	stats     StatsProvider
	interval  time.Duration
	startTime time.Time
	logger    *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a new metrics collector; stats may be nil
func NewCollector(m *Metrics, stats StatsProvider, interval time.Duration, logger *slog.Logger) *Collector {
	if interval == 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		metrics:   m,
		stats:     stats,
		interval:  interval,
		startTime: time.Now(),
		logger:    logger.With("component", "metrics_collector"),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the collector background loop
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()

	c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// collect refreshes all gauges once
func (c *Collector) collect(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.stats == nil {
		return
	}
	stats, err := c.stats.Stats(ctx, time.Now())
	if err != nil {
		c.logger.Warn("failed to collect pipeline stats", "error", err)
		return
	}
	c.metrics.LeadsTotal.Set(float64(stats.Leads))
	c.metrics.EnrollmentsActive.Set(float64(stats.ActiveEnrollments))
	c.metrics.EnrollmentsDue.Set(float64(stats.DueEnrollments))
	c.metrics.EmailsPending.Set(float64(stats.QueuedEmails))
}
