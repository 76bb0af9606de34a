package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)
	return lis
}

func bufDialer(lis *bufconn.Listener) grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func TestPool_GetConnectionReusesTarget(t *testing.T) {
	lis := startHealthServer(t)
	pool := NewPool(WithDialOptions(bufDialer(lis)))
	defer pool.Close()

	first, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)
	second, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)
	assert.Same(t, first, second)

	resp, err := healthpb.NewHealthClient(first).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestPool_CloseRecreatesConnection(t *testing.T) {
	lis := startHealthServer(t)
	pool := NewPool(WithDialOptions(bufDialer(lis)))

	first, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	second, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	require.NoError(t, pool.Close())
}

func TestPool_LoggingInterceptor(t *testing.T) {
	lis := startHealthServer(t)
	core, logs := observer.New(zapcore.DebugLevel)
	pool := NewPool(
		WithDialOptions(bufDialer(lis)),
		WithInterceptor(LoggingInterceptor(zap.New(core))),
	)
	defer pool.Close()

	conn, err := pool.GetConnection("passthrough:///bufnet")
	require.NoError(t, err)
	client := healthpb.NewHealthClient(conn)

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "unknown"})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "/grpc.health.v1.Health/Check", entries[0].ContextMap()["method"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
