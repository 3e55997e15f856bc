package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServerConfig holds configuration for the gRPC server.
type ServerConfig struct {
	// Host and Port form the listen address. Port 0 picks a free port.
	Host string
	Port int

	// Reader serves the PlatformReader service. Required.
	Reader PlatformReaderServer

	// Options are passed to grpc.NewServer, typically the telemetry stats
	// handler.
	Options []grpc.ServerOption

	// Logger for server lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server wraps a grpc.Server carrying the platform reader and the standard
// health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	addr       string
	logger     *slog.Logger
}

// NewServer creates a gRPC server with the reader and health services
// registered. It panics if cfg.Reader is nil.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Reader == nil {
		panic("grpc: reader is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	grpcServer := grpc.NewServer(cfg.Options...)
	grpcServer.RegisterService(&PlatformReaderServiceDesc, cfg.Reader)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		addr:       net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		logger:     logger.With(slog.String("component", "grpc_server")),
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	return lis, nil
}

// Run serves on lis until ctx is cancelled, then stops gracefully.
// The health service reports NOT_SERVING before in-flight RPCs drain.
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	serveErr := make(chan error, 1)

	go func() {
		s.logger.Info("gRPC server starting", slog.String("addr", lis.Addr().String()))
		serveErr <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("gRPC server shutting down")
		s.health.Shutdown()
		s.grpcServer.GracefulStop()

		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Info("gRPC server stopped")
			return nil
		}

		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}

		return fmt.Errorf("serve gRPC: %w", err)
	}
}
