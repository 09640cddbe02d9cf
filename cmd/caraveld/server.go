package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/artpar/caravel/internal/daemon"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitHTTPServerError = 3
)

// ServerError carries an exit code alongside the failing operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ServerError) Unwrap() error { return e.Err }

// =============================================================================
// Server
// =============================================================================

// Server is the caraveld application: supervisor, health monitor, history
// store, and the HTTP API in front of them.
type Server struct {
	config     *Config
	httpServer *http.Server
	supervisor *daemon.Supervisor
	history    *daemon.History
	logger     *slog.Logger
}

// NewServer creates a server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	history, err := daemon.OpenHistory(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}

	supervisor := daemon.NewSupervisor(cfg.Modules.LogDir, logger)
	monitor := daemon.NewMonitor(daemon.MonitorConfig{
		DefaultRetries:  cfg.Health.Retries,
		DefaultInterval: cfg.Health.Interval,
	}, logger)

	router := mux.NewRouter()
	daemon.RegisterRoutes(router, daemon.APIConfig{
		Supervisor: supervisor,
		Monitor:    monitor,
		History:    history,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		supervisor: supervisor,
		history:    history,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{Op: "Start", Err: err, ExitCode: ExitHTTPServerError}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server and supervised modules.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.supervisor.StopAll()

	if err := s.history.Close(); err != nil {
		s.logger.Error("history store close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}
