package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/logger"
)

// shutdownGrace bounds how long in-flight requests may run after shutdown
// begins.
const shutdownGrace = 30 * time.Second

// Server runs the API until its context is cancelled.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the router for ports and binds it to the configured
// address.
func NewServer(cfg domain.ServerSettings, ports Ports) (*Server, error) {
	api, err := NewAPI(ports, cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	if logger.IsVerbose() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cfg.Addr
	if addr == "" {
		addr = domain.DefaultAppSettings().Server.Addr
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(api, cfg.RequestTimeout.Std()),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP API: %w", err)
	}
	return nil
}
