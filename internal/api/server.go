// Package api provides the optional admin HTTP server exposing health and
// metrics endpoints beside the chat listener.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dongY99/mju-backend-60182195/internal/config"
	"github.com/dongY99/mju-backend-60182195/internal/logger"
)

// Server is the admin HTTP server.
type Server struct {
	server       *http.Server
	shutdownOnce sync.Once
}

// NewServer creates the admin server in a stopped state.
func NewServer(cfg config.AdminConfig) *Server {
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start serves in a background goroutine until Stop is called.
func (s *Server) Start() {
	go func() {
		logger.Info("admin server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server failed", "error", err)
		}
	}()
}

// Stop shuts the admin server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
	})
	return err
}
