// ABOUTME: HTTP server wiring for aa-tracker: store, verifier, auth gateway and routes
// ABOUTME: Owns the listener lifecycle with graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aa-tracker/aa-tracker/internal/auth"
	"github.com/aa-tracker/aa-tracker/internal/config"
	"github.com/aa-tracker/aa-tracker/internal/initdata"
	"github.com/aa-tracker/aa-tracker/internal/metrics"
	"github.com/aa-tracker/aa-tracker/internal/store"
)

// ShutdownTimeout bounds graceful shutdown once the run context is canceled.
const ShutdownTimeout = 5 * time.Second

// Server serves the task API.
type Server struct {
	config     *config.Config
	store      store.Store
	auth       *auth.Gateway
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New opens the configured store and builds a Server around it.
// The returned Server owns the store and closes it on Shutdown.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(cfg.Database.Target, store.Options{
		QueryTimeout: cfg.Database.QueryTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	srv, err := NewWithStore(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return srv, nil
}

// NewWithStore builds a Server on an existing store.
func NewWithStore(cfg *config.Config, st store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	verifier, err := initdata.NewVerifier(cfg.Telegram.BotToken, initdata.WithMaxAge(cfg.Telegram.MaxAge))
	if err != nil {
		return nil, fmt.Errorf("creating verifier: %w", err)
	}

	s := &Server{
		config: cfg,
		store:  st,
		auth: auth.NewGateway(verifier, st, auth.GatewayOptions{
			StrictParsing: cfg.Telegram.StrictParsing,
			Logger:        logger,
		}),
		logger: logger.With("component", "server"),
	}

	if !cfg.Auth.RequireInitData {
		s.logger.Warn("auth.require_init_data is disabled; task routes trust the telegram_id a client claims")
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.handler = s.withRequestLogging(mux)

	readHeaderTimeout := cfg.Server.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = config.DefaultReadHeaderTimeout
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s, nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)

	mux.HandleFunc("POST /auth", s.handleAuth)

	protect := func(h http.HandlerFunc) http.Handler {
		if s.config.Auth.RequireInitData {
			return auth.RequireInitData(s.auth)(h)
		}
		return h
	}
	mux.Handle("GET /tasks", protect(s.handleListTasks))
	mux.Handle("POST /tasks", protect(s.handleCreateTask))
	mux.Handle("PUT /tasks/{id}", protect(s.handleUpdateTask))
	mux.Handle("PUT /tasks/{id}/toggle", protect(s.handleToggleTask))
	mux.Handle("DELETE /tasks/{id}", protect(s.handleDeleteTask))

	if s.config.Metrics.Enabled {
		metrics.RegisterCollectors(prometheus.DefaultRegisterer)
		mux.Handle("GET "+s.config.Metrics.Path, promhttp.Handler())
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on server.http_addr and blocks until ctx is canceled or the server fails.
// Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests, waits for in-flight ones and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if storage answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
