package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, ready ReadinessFunc) (*GRPCServer, healthpb.HealthClient) {
	t.Helper()

	s := NewGRPCServer("bufnet", logging.Nop(), ready)
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return s, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_ServingWhenStoreReachable(t *testing.T) {
	_, c := startServer(t, func(context.Context) error { return nil })

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ServiceName))
}

func TestHealth_NotServingWhenStoreDown(t *testing.T) {
	_, c := startServer(t, func(context.Context) error { return errors.New("connection refused") })

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, c, ""))
}

func TestHealth_UnknownService(t *testing.T) {
	_, c := startServer(t, nil)

	_, err := c.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "nope"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestProbe_FollowsStore(t *testing.T) {
	var down atomic.Bool
	s := NewGRPCServer("", logging.Nop(), func(context.Context) error {
		if down.Load() {
			return errors.New("down")
		}
		return nil
	})

	ctx := context.Background()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.probe(ctx))

	down.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.probe(ctx))

	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), nil)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	wantErr := status.Error(codes.Unavailable, "down")

	resp, err := s.loggingInterceptor(context.Background(), "req", info,
		func(ctx context.Context, req interface{}) (interface{}, error) {
			return "resp", wantErr
		})

	assert.Equal(t, "resp", resp)
	assert.Equal(t, wantErr, err)
}
