package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/foxzi/smartreach/internal/composer"
	"github.com/foxzi/smartreach/internal/config"
	"github.com/foxzi/smartreach/internal/metrics"
	"github.com/foxzi/smartreach/internal/repository"
	"github.com/foxzi/smartreach/internal/scheduler"
)

// LanguageModel is the model behind the composer
type LanguageModel interface {
	Model() string
	Ping(ctx context.Context) (string, error)
}

// Deps are the services the API serves
type Deps struct {
	Leads     *repository.LeadRepository
	Campaigns *repository.CampaignRepository
	EmailLogs *repository.EmailLogRepository
	Drafts    *repository.DraftRepository
	Scheduler *scheduler.Scheduler
	Composer  *composer.Composer
	Model     LanguageModel
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     *config.Config
	validate   *validator.Validate
	aiLimiter  *rate.Limiter
	logger     *slog.Logger
	startTime  time.Time
	now        func() time.Time
}

// NewServer creates a new API server
func NewServer(deps Deps, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		config:    cfg,
		validate:  newValidator(),
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
		now:       time.Now,
	}

	if n := cfg.AI.RateLimitPerMinute; n > 0 {
		s.aiLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	s.setupRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	if origins := s.config.Server.CORS.AllowedOrigins; len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleLeadsList)
			r.Post("/", s.handleLeadsUpsert)
			r.Get("/{id}", s.handleLeadsGet)
			r.Put("/{id}/status", s.handleLeadsStatus)
			r.Put("/{id}/tags", s.handleLeadsTags)
			r.Get("/{id}/drafts", s.handleLeadsDrafts)
		})

		r.Get("/dashboard", s.handleDashboard)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleCampaignsList)
			r.Post("/", s.handleCampaignsCreate)
			r.Get("/{id}", s.handleCampaignsGet)
		})

		r.Post("/enrollments", s.handleEnroll)
		r.Post("/enrollments/{id}/advance", s.handleEnrollmentAdvance)

		r.Post("/email/queue", s.handleEmailQueue)
		r.Get("/email/logs", s.handleEmailLogs)

		r.Post("/generate-email", s.handleGenerateEmail)
		r.Get("/ping", s.handlePing)

		r.With(s.cronAuthMiddleware).Post("/cron/send-due-emails", s.handleSendDueEmails)
	})
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
