package pos

import (
	"context"
	"fmt"
	"net"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// RegisterFunc registers gRPC services on a server.
type RegisterFunc func(*grpc.Server)

// ServerConfig configures a gRPC server.
type ServerConfig struct {
	Service     string
	DefaultPort string
}

// ListenPort returns the PORT environment variable, falling back to cfg.DefaultPort.
func (cfg ServerConfig) ListenPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return cfg.DefaultPort
}

// NewServer builds a gRPC server with the standard health service set to SERVING.
func NewServer(register RegisterFunc, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	register(s)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return s, healthServer
}

// RunServer starts a gRPC server with health checks.
//
// Blocks until the server exits or ctx is cancelled, in which case the server
// is drained with GracefulStop.
func RunServer(ctx context.Context, cfg ServerConfig, logger *zap.Logger, register RegisterFunc) error {
	port := cfg.ListenPort()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	s, healthServer := NewServer(register)

	logger.Info("grpc server started",
		zap.String("service", cfg.Service),
		zap.String("port", port),
	)

	go func() {
		<-ctx.Done()
		healthServer.Shutdown()
		s.GracefulStop()
	}()

	if err := s.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
