// Package stubserver is an in-process implementation of the vendor
// authentication backend, used for local development and end-to-end tests.
package stubserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"authsecure/internal/config"
	apperrors "authsecure/internal/errors"
	"authsecure/internal/middleware"
	"authsecure/pkg/contracts"
)

// APIPath mirrors the path of the production endpoint
const APIPath = "/post/api.php"

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Minute
)

// Options customizes a Server
type Options struct {
	Logger *slog.Logger
	// Registry receives the stub's collectors; a private registry is used when nil
	Registry *prometheus.Registry
	// Gatherers are served on /metrics next to Registry
	Gatherers []prometheus.Gatherer
}

// Server wires the backend behind a chi router
type Server struct {
	cfg      config.StubConfig
	backend  *Backend
	logger   *slog.Logger
	registry *prometheus.Registry
	handler  http.Handler
}

// New builds the router for backend
func New(cfg config.StubConfig, backend *Backend, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "stub_server")

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if err := registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "authsecure_stub_sessions",
		Help: "Sessions currently held by the stub backend",
	}, func() float64 { return float64(backend.ActiveSessions()) })); err != nil {
		return nil, fmt.Errorf("failed to register session gauge: %w", err)
	}

	apiHandler, err := NewHandler(backend, registry, logger)
	if err != nil {
		return nil, err
	}

	gatherers := append(prometheus.Gatherers{registry}, opts.Gatherers...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"status":   "ok",
			"version":  contracts.Version,
			"protocol": contracts.ProtocolVersion,
			"sessions": backend.ActiveSessions(),
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		if cfg.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger).Handler)
		}
		r.Method(http.MethodPost, "/", apiHandler)
		r.Method(http.MethodPost, APIPath, apiHandler)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apperrors.ErrMethodNotAllowed)
	})

	return &Server{
		cfg:      cfg,
		backend:  backend,
		logger:   logger,
		registry: registry,
		handler:  otelhttp.NewHandler(r, "authsecure-stub"),
	}, nil
}

// Handler returns the instrumented router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, purging expired
// sessions in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Stub backend listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Stub backend shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				remaining := s.backend.PurgeExpired()
				s.logger.Debug("Expired sessions purged", slog.Int("remaining", remaining))
			}
		}
	})

	return g.Wait()
}
