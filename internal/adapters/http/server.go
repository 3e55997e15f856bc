// Package http provides the HTTP adapter layer using Gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/platform-service/internal/platform/config"
)

// Server owns the Gin engine and the listener lifecycle of the platform API.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	drain  time.Duration
	limit  int64
	logger *slog.Logger
}

// New builds a server for cfg. Every request body is capped at
// cfg.MaxRequestSize.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(limitBody(cfg.MaxRequestSize))

	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		drain:  cfg.ShutdownTimeout,
		limit:  cfg.MaxRequestSize,
		logger: logger.With(slog.String("component", "http.Server")),
	}
}

// Engine is where routes are mounted before Run.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) Addr() string { return s.srv.Addr }

// Listen binds Addr. With port 0 the chosen port is on the listener.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	return lis, nil
}

// Run serves on lis until ctx ends, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	served := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server starting",
			slog.String("addr", lis.Addr().String()),
			slog.Int64("max_request_bytes", s.limit))
		served <- s.srv.Serve(lis)
	}()

	select {
	case err := <-served:
		return serveError(err)
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down", slog.Duration("drain", s.drain))

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drain)
	defer cancel()

	if err := s.srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown HTTP: %w", err)
	}

	if err := serveError(<-served); err != nil {
		return err
	}

	s.logger.Info("HTTP server stopped")

	return nil
}

func serveError(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return fmt.Errorf("serve HTTP: %w", err)
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
