// Package api exposes the admin JSON surface: schema management, batch
// operations and the dispatch audit trail.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/aspect-export/internal/config"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/batch"
	"github.com/ignite/aspect-export/internal/service/dispatch"
	"github.com/ignite/aspect-export/internal/service/schema"
)

// Server is the admin API server.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	server   *http.Server
	log      *logger.Logger
}

// NewServer creates an admin API server wired to the three services.
func NewServer(cfg config.ServerConfig, schemas *schema.Service, batches *batch.Service,
	logs *dispatch.Service, log *logger.Logger) *Server {

	handlers := NewHandlers(schemas, batches, logs, log)
	return &Server{
		cfg:      cfg,
		handlers: handlers,
		log:      log,
	}
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      SetupRoutes(s.handlers, s.cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("api: listening", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
