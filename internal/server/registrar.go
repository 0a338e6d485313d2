package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// Check probes one dependency; nil means healthy.
type Check func(ctx context.Context) error

// HealthRegistrar serves grpc.health.v1 and mirrors the outcome of periodic
// dependency checks into the overall serving status.
type HealthRegistrar struct {
	srv    *health.Server
	checks map[string]Check
	logger *slog.Logger

	mu   sync.RWMutex
	last map[string]string
}

func NewHealthRegistrar(logger *slog.Logger, checks map[string]Check) *HealthRegistrar {
	return &HealthRegistrar{
		srv:    health.NewServer(),
		checks: checks,
		logger: logger,
		last:   make(map[string]string),
	}
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Probe runs every check once and updates the serving status.
func (h *HealthRegistrar) Probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			h.logger.Warn("health check failed", "dependency", name, "err", err)
			results[name] = "down"
			status = healthpb.HealthCheckResponse_NOT_SERVING
			continue
		}
		results[name] = "ok"
	}

	h.mu.Lock()
	h.last = results
	h.mu.Unlock()
	h.srv.SetServingStatus("", status)
}

// Run probes every interval until ctx ends, then reports NOT_SERVING.
func (h *HealthRegistrar) Run(ctx context.Context, interval time.Duration) error {
	h.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return nil
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Snapshot returns the latest result per dependency.
func (h *HealthRegistrar) Snapshot() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.last))
	for k, v := range h.last {
		out[k] = v
	}
	return out
}
