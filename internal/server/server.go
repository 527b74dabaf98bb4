package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports the feed loop state and whether it is streaming.
type HealthFunc func() (state string, streaming bool)

// Config configures the metrics server.
type Config struct {
	Port            int           // TCP port to listen on (1-65535)
	HealthPath      string        // Path answered with health JSON; empty disables it
	ReadTimeout     time.Duration // Max time to read a scrape request
	ShutdownTimeout time.Duration // Grace period for in-flight scrapes on shutdown
}

// DefaultConfig returns the standard exporter port.
func DefaultConfig() Config {
	return Config{
		Port:            9090,
		HealthPath:      "/healthz",
		ReadTimeout:     10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server serves the current registry contents on every request.
type Server struct {
	cfg      Config
	gatherer prometheus.Gatherer
	health   HealthFunc
	logger   *slog.Logger
}

// New creates a Server. health may be nil.
func New(cfg Config, gatherer prometheus.Gatherer, health HealthFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:      cfg,
		gatherer: gatherer,
		health:   health,
		logger:   logger,
	}
}

// Handler returns the HTTP handler. Any path and method gets the metrics,
// except the configured health path which answers with the feed state as
// JSON (503 while not streaming). An empty HealthPath or a nil HealthFunc
// turns the exception off.
func (s *Server) Handler() http.Handler {
	metrics := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})

	if s.cfg.HealthPath == "" || s.health == nil {
		return metrics
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == s.cfg.HealthPath {
			s.serveHealth(w)
			return
		}
		metrics.ServeHTTP(w, r)
	})
}

// Serve listens on the configured port until ctx is cancelled. A bind
// failure is returned immediately.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("metrics server failed to bind", "addr", addr, "error", err)
		return fmt.Errorf("bind metrics listener %s: %w", addr, err)
	}

	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("metrics server running", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("metrics server exited", "error", err)
		return fmt.Errorf("serve metrics: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("metrics server shutdown", "error", err)
		}
		s.logger.Info("metrics server stopped")
		return nil
	}
}

func (s *Server) serveHealth(w http.ResponseWriter) {
	state, streaming := s.health()

	status := "healthy"
	code := http.StatusOK
	if !streaming {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		Feed   string `json:"feed"`
	}{
		Status: status,
		Feed:   state,
	})
}
