package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/ganymede/pkg/config"
)

// Server is the HTTP front of the configuration store.
type Server struct {
	cfg         *config.ServerConfig
	handlers    *Handlers
	metrics     http.Handler // nil when metrics are disabled
	metricsPath string
	logger      *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the HTTP server. metricsHandler may be nil.
func NewServer(cfg *config.ServerConfig, handlers *Handlers, metricsHandler http.Handler, metricsPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         cfg,
		handlers:    handlers,
		metrics:     metricsHandler,
		metricsPath: metricsPath,
		logger:      logger.With("component", "server"),
	}
}

// Handler returns the fully assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/configs/{application}/{environment}/{category}", s.handlers.GetConfig)
	mux.HandleFunc("GET /v1/commits/{application}/{environment}", s.handlers.GetCommits)
	mux.HandleFunc("GET /v1/repositories", s.handlers.GetRepositories)
	mux.HandleFunc("POST /v1/applications", s.handlers.CreateApplication)
	mux.HandleFunc("POST /v1/applications/{application}/environments/{environment}", s.handlers.CreateApplicationEnvironment)
	mux.HandleFunc("GET /healthz", s.handlers.Healthz)

	if s.metrics != nil {
		path := s.metricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, s.metrics)
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger, handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger, handler)
	return handler
}

// Start runs the server and blocks until the context is cancelled, a
// shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.cfg.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: s.cfg.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
