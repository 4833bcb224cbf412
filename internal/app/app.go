package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/foxzi/smartreach/internal/api"
	"github.com/foxzi/smartreach/internal/composer"
	"github.com/foxzi/smartreach/internal/config"
	"github.com/foxzi/smartreach/internal/db"
	"github.com/foxzi/smartreach/internal/metrics"
	"github.com/foxzi/smartreach/internal/repository"
	"github.com/foxzi/smartreach/internal/scheduler"
)

// App is the main application
type App struct {
	config        *config.Config
	db            *db.DB
	apiServer     *api.Server
	metricsServer *metrics.Server
	collector     *metrics.Collector
	runner        *scheduler.Runner
	scheduler     *scheduler.Scheduler
	logger        *slog.Logger
	logFile       io.Closer
}

// New creates a new application
func New(cfg *config.Config) (*App, error) {
	logger, logFile := setupLogger(cfg.Logging)

	database, err := db.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	leads := repository.NewLeadRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB)
	enrollments := repository.NewEnrollmentRepository(database.DB)

	sched := scheduler.New(enrollments, leads, campaigns, logger)

	model := composer.NewOpenAI(cfg.AI)
	if cfg.AI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, draft generation will fail")
	}

	a := &App{
		config:    cfg,
		db:        database,
		scheduler: sched,
		logger:    logger,
		logFile:   logFile,
	}

	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		a.metricsServer = metrics.NewServer(m, cfg.Metrics, logger)
		a.collector = metrics.NewCollector(m, repository.NewStatsRepository(database.DB), 0, logger)
		logger.Info("metrics enabled", "addr", cfg.Metrics.ListenAddr, "path", cfg.Metrics.Path)
	}

	a.apiServer = api.NewServer(api.Deps{
		Leads:     leads,
		Campaigns: campaigns,
		EmailLogs: repository.NewEmailLogRepository(database.DB),
		Drafts:    repository.NewDraftRepository(database.DB),
		Scheduler: sched,
		Composer:  composer.New(model, logger),
		Model:     model,
	}, cfg, logger)

	if cfg.Scheduler.Enabled {
		a.runner = scheduler.NewRunner(sched, cfg.Scheduler.Spec, 0, logger)
	}

	return a, nil
}

// Scheduler returns the campaign scheduler
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting smartreach",
		"api_addr", a.config.Server.ListenAddr,
		"database", a.config.Database.Driver,
		"scheduler", a.config.Scheduler.Enabled,
		"model", a.config.AI.Model,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	if a.collector != nil {
		a.collector.Start(ctx)
		a.metricsServer.Start()
	}

	if a.runner != nil {
		if err := a.runner.Start(); err != nil {
			return errors.Join(err, a.Shutdown(context.Background()))
		}
	}

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// stop producing new work before closing servers
	if a.runner != nil {
		a.runner.Stop()
	}

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.collector != nil {
		a.collector.Stop()
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	if a.logFile != nil {
		a.logFile.Close()
	}
	return nil
}

// setupLogger creates a logger based on configuration. With a log file set,
// records go to stdout and to a rotated file.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var out io.Writer = os.Stdout
	var closer io.Closer
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
