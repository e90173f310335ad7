package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/draftsync/internal/core/domain"
)

// ServiceName returns the gRPC health service name for a league.
func ServiceName(leagueID domain.LeagueID) string {
	return "draftsync.league." + string(leagueID)
}

// servingStatus maps a connection state onto a gRPC serving status. Reconnecting
// still serves: the ledger is readable and the loop is retrying.
func servingStatus(state domain.ConnectionState) grpc_health_v1.HealthCheckResponse_ServingStatus {
	switch state {
	case domain.StateConnected, domain.StateReconnecting:
		return grpc_health_v1.HealthCheckResponse_SERVING
	default:
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
}

// GRPCServer hosts the standard gRPC health service with one entry per league.
type GRPCServer struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// NewGRPCServer listens on port. Port 0 picks a free port.
func NewGRPCServer(port int) (*GRPCServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
	}, nil
}

// Addr returns the listen address.
func (s *GRPCServer) Addr() string {
	return s.listener.Addr().String()
}

// SetLeagueState updates the league's serving status.
func (s *GRPCServer) SetLeagueState(leagueID domain.LeagueID, state domain.ConnectionState) {
	s.health.SetServingStatus(ServiceName(leagueID), servingStatus(state))
}

// Check answers a health check in-process.
func (s *GRPCServer) Check(ctx context.Context, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve blocks until ctx is cancelled or the server fails.
func (s *GRPCServer) Serve(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}
