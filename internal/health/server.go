// Package health exposes the grpc.health.v1 service for liveness and
// readiness probes and keeps its status in line with the database.
package health

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the todo API.
const ServiceName = "clearlist.Todos"

// сервер держит grpc-сервер и состояние health-сервиса
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer registers the health service. Everything starts NOT_SERVING
// until the first successful database check.
func NewServer(logger *slog.Logger) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs, logger: logger}
	s.SetServing(false)
	return s
}

// Serve blocks serving gRPC on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server starting", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// SetServing flips the overall and the todo service status.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// Stop shuts the health service down and waits for in-flight RPCs.
func (s *Server) Stop() {
	s.Shutdown()
	s.logger.Info("stopping gRPC server...")
	s.grpc.GracefulStop()
	s.logger.Info("gRPC server stopped")
}
