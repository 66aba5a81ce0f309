// Package grpcstatus exposes supervision health over a local gRPC
// endpoint using the standard health checking protocol. The endpoint
// reports NOT_SERVING once the reboot-escalation predicate holds.
package grpcstatus

import (
	"fmt"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/logging"
	"github.com/inango/chandler/internal/stats"
)

// updateInterval is how often the health status is re-evaluated.
const updateInterval = 5 * time.Second

// serviceName is the health service identifier clients query.
const serviceName = "chandler.Supervisor"

// Server serves the gRPC health endpoint on a Unix socket.
type Server struct {
	cfg      *config.Config
	log      *logging.Logger
	counters *stats.Counters

	grpcServer *grpc.Server
	health     *health.Server
	done       chan struct{}
}

// New creates a Server. It returns nil when no status socket is
// configured: the endpoint is optional.
func New(cfg *config.Config, log *logging.Logger, counters *stats.Counters) *Server {
	if cfg.StatusSocket == "" {
		return nil
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		counters: counters,
		done:     make(chan struct{}),
	}
}

// Start listens on the status socket and serves until Stop.
func (s *Server) Start() error {
	// A previous run may have left the socket file behind.
	_ = os.Remove(s.cfg.StatusSocket)

	listener, err := net.Listen("unix", s.cfg.StatusSocket)
	if err != nil {
		return fmt.Errorf("listening on status socket: %w", err)
	}

	s.grpcServer = grpc.NewServer()
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.setStatus()

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil {
			s.log.Errorf("status server stopped: %v", err)
		}
	}()

	go s.updateLoop()

	s.log.Infof("serving status on %s", s.cfg.StatusSocket)
	return nil
}

// Stop shuts the server down and removes the socket file.
func (s *Server) Stop() {
	close(s.done)
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	_ = os.Remove(s.cfg.StatusSocket)
}

// updateLoop re-evaluates the health status periodically.
func (s *Server) updateLoop() {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.setStatus()
		}
	}
}

// setStatus mirrors the engine's escalation predicate: the supervisor is
// healthy while both counters sit at or below their thresholds.
func (s *Server) setStatus() {
	status := healthpb.HealthCheckResponse_SERVING

	if (s.cfg.RestartsBeforeReboot > 0 && s.counters.Restarts() > s.cfg.RestartsBeforeReboot) ||
		(s.cfg.FailuresBeforeReboot > 0 && s.counters.Failures() > s.cfg.FailuresBeforeReboot) {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus(serviceName, status)
	s.health.SetServingStatus("", status)
}
