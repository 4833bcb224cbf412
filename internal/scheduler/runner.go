package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner triggers ProcessDue on a cron schedule
type Runner struct {
	scheduler *Scheduler
	cron      *cron.Cron
	spec      string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewRunner creates a runner for spec (standard cron or @every descriptor).
// Overlapping runs are skipped.
func NewRunner(s *Scheduler, spec string, timeout time.Duration, logger *slog.Logger) *Runner {
	logger = logger.With("component", "scheduler_runner")
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	cl := cronLogger{logger: logger}
	return &Runner{
		scheduler: s,
		cron:      cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		spec:      spec,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start registers the job and starts the cron loop
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.run); err != nil {
		return fmt.Errorf("failed to schedule due scan: %w", err)
	}
	r.cron.Start()
	r.logger.Info("scheduler runner started", "spec", r.spec)
	return nil
}

// Stop stops the cron loop and waits for a running pass to finish
func (r *Runner) Stop() {
	r.logger.Info("stopping scheduler runner...")
	<-r.cron.Stop().Done()
	r.logger.Info("scheduler runner stopped")
}

func (r *Runner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.scheduler.ProcessDue(ctx, time.Now()); err != nil {
		r.logger.Error("due scan failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
