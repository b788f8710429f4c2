// Package health exposes engine liveness as a gRPC health service on a unix
// socket.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/rbright/presto/internal/fsm"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the per-service name reported alongside the overall status.
const Service = "presto.Engine"

// Server serves grpc.health.v1.Health. Status follows the engine state:
// SERVING only while Running.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

// NewServer builds a server reporting NOT_SERVING until observed Running.
func NewServer(logger zerolog.Logger) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs, logger: logger.With().Str("component", "health").Logger()}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Observe maps an engine state change to a serving status.
func (s *Server) Observe(state fsm.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if fsm.Accepting(state) {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.set(status)
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	s.logger.Debug().Str("status", status.String()).Msg("health status")
}

// Listen binds path, replacing a leftover socket file. Callers hold the
// single-instance control socket first.
func Listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale health socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on health socket %q: %w", path, err)
	}
	return listener, nil
}

// Serve blocks until ctx ends or the listener fails.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve health: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the gRPC server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.Stop()
}
