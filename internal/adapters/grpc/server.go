package grpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes the gRPC health endpoint used by platform liveness probes.
// The payment API itself is HTTP-only; sibling services only need to know
// whether this instance is serving.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	service    string
}

func NewServer(serviceName string) *Server {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		service:    serviceName,
	}
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	s.health.SetServingStatus(s.service, healthpb.HealthCheckResponse_SERVING)
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.health.SetServingStatus(s.service, healthpb.HealthCheckResponse_NOT_SERVING)
	s.grpcServer.GracefulStop()
}
