package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/presto/internal/fsm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "presto-health")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "h.sock")
}

func check(t *testing.T, path string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := Check(ctx, path)
	require.NoError(t, err)
	return status
}

func TestServerFollowsEngineState(t *testing.T) {
	path := socketPath(t)
	listener, err := Listen(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer(zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, listener) }()

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, path))

	server.Observe(fsm.StateRunning)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, path))

	server.Observe(fsm.StateShuttingDown)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, path))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not stop")
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	listener, err := Listen(path)
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}

func TestCheckFailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Check(ctx, filepath.Join(t.TempDir(), "missing.sock"))
	require.Error(t, err)
}
