package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/foxzi/smartreach/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves Prometheus metrics over HTTP
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	addr       string
	path       string
	logger     *slog.Logger
	allowed    []netip.Prefix
}

// NewServer creates a metrics server. Invalid allow-list entries are logged and skipped.
func NewServer(m *Metrics, cfg config.MetricsConfig, logger *slog.Logger) *Server {
	s := &Server{
		metrics: m,
		addr:    cfg.ListenAddr,
		path:    cfg.Path,
		logger:  logger.With("component", "metrics_server"),
	}
	if s.addr == "" {
		s.addr = ":9090"
	}
	if s.path == "" {
		s.path = "/metrics"
	}

	for _, entry := range cfg.AllowedIPs {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, err := parsePrefix(entry)
		if err != nil {
			s.logger.Warn("invalid entry in allowed_ips", "entry", entry, "error", err)
			continue
		}
		s.allowed = append(s.allowed, prefix)
	}

	if len(s.allowed) > 0 {
		s.logger.Info("metrics IP filtering enabled", "allowed_networks", len(s.allowed))
	}
	return s
}

// parsePrefix accepts a CIDR or a single address
func parsePrefix(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		p, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Handler returns the metrics HTTP handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)

	// no IP filtering on health, load balancers probe it
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.With(s.ipFilter).Handle(s.path, promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))
	return r
}

// Start starts the metrics server in the background
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("starting metrics server", "addr", s.addr, "path", s.path)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ipFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowed) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		addr, ok := clientAddr(r)
		if !ok {
			s.logger.Warn("could not parse client IP", "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if !s.isAllowed(addr) {
			s.logger.Warn("metrics access denied", "ip", addr.String())
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddr parses RemoteAddr, which middleware.RealIP has already
// replaced with the forwarded client address when present
func clientAddr(r *http.Request) (netip.Addr, bool) {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func (s *Server) isAllowed(addr netip.Addr) bool {
	for _, p := range s.allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
