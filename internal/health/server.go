// Package health exposes the standard gRPC health service for long running
// commands such as the directory watcher.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name reported for the extraction pipeline. The empty name
// covers the whole process.
const Service = "installments.Extractor"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger *slog.Logger
}

// Listen binds addr and registers the health and reflection services. Both
// the process and Service start as NOT_SERVING.
func Listen(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	// reflection for grpcurl
	reflection.Register(gs)

	s := &Server{grpc: gs, health: hs, lis: lis, logger: logger}
	s.SetServing(false)
	return s, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string { return s.lis.Addr().String() }

// SetServing flips the status of the process and of Service.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("health.serving", "addr", s.Addr())
		errCh <- s.grpc.Serve(s.lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		s.logger.Info("health.stopped")
		return nil
	case err := <-errCh:
		return fmt.Errorf("grpc serve: %w", err)
	}
}
