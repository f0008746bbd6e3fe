package api

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthServer exposes the standard gRPC health service so orchestrators
// can probe the worker without HTTP.
type healthServer struct {
	port   int
	server *grpc.Server
	health *health.Server
}

func newHealthServer(port int) *healthServer {
	hs := &healthServer{
		port:   port,
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(hs.server, hs.health)
	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return hs
}

func (hs *healthServer) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", hs.port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", hs.port, err)
	}
	return hs.Serve(lis)
}

func (hs *healthServer) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC health server")
	return hs.server.Serve(lis)
}

func (hs *healthServer) Stop() {
	hs.health.Shutdown()
	hs.server.GracefulStop()
}
