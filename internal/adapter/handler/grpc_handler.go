package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the gRPC health service name reported for the whole app.
const ServiceName = "lostfound.v1.LostFound"

// GRPCHealth publishes dependency health over the standard gRPC health
// protocol. Each dependency is its own service name; the empty name and
// ServiceName are SERVING only while every dependency is.
type GRPCHealth struct {
	server *health.Server
	deps   map[string]Pinger
	logger *zap.Logger
}

func NewGRPCHealth(deps map[string]Pinger, logger *zap.Logger) *GRPCHealth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHealth{
		server: health.NewServer(),
		deps:   deps,
		logger: logger,
	}
}

// NewGRPCServer registers the health and reflection services.
func NewGRPCServer(h *GRPCHealth, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.server)
	reflection.Register(s)
	return s
}

// Refresh pings every dependency once and updates the reported statuses.
func (h *GRPCHealth) Refresh(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for name, dep := range h.deps {
		status := healthpb.HealthCheckResponse_SERVING
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		h.server.SetServingStatus(name, status)
	}
	h.server.SetServingStatus("", overall)
	h.server.SetServingStatus(ServiceName, overall)
}

// Run refreshes on every tick until ctx is done, then marks everything
// NOT_SERVING.
func (h *GRPCHealth) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Check answers a health probe in-process, the same way a remote client
// would be answered.
func (h *GRPCHealth) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.server.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
