package handler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestGRPCHealth_Refresh(t *testing.T) {
	var redisDown atomic.Bool
	h := NewGRPCHealth(map[string]Pinger{
		"database": pingerFunc(func(context.Context) error { return nil }),
		"redis": pingerFunc(func(context.Context) error {
			if redisDown.Load() {
				return errors.New("connection refused")
			}
			return nil
		}),
	}, nil)
	ctx := context.Background()

	h.Refresh(ctx)
	status, err := h.Check(ctx, ServiceName)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)

	redisDown.Store(true)
	h.Refresh(ctx)

	status, err = h.Check(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)

	status, err = h.Check(ctx, "redis")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)

	status, err = h.Check(ctx, "database")
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)
}

func TestGRPCHealth_UnknownService(t *testing.T) {
	h := NewGRPCHealth(nil, nil)
	h.Refresh(context.Background())

	_, err := h.Check(context.Background(), "nope")
	assert.Error(t, err)
}

func TestGRPCHealth_RunStopsServing(t *testing.T) {
	h := NewGRPCHealth(map[string]Pinger{
		"database": pingerFunc(func(context.Context) error { return nil }),
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		status, err := h.Check(context.Background(), ServiceName)
		return err == nil && status == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	status, err := h.Check(context.Background(), ServiceName)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)
}

func TestNewGRPCServer_RegistersServices(t *testing.T) {
	s := NewGRPCServer(NewGRPCHealth(nil, nil))
	defer s.Stop()

	info := s.GetServiceInfo()
	assert.Contains(t, info, "grpc.health.v1.Health")
	assert.Contains(t, info, "grpc.reflection.v1.ServerReflection")
}
