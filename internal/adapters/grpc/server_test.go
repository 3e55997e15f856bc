package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jsamuelsen/platform-service/internal/domain"
)

type listerFunc func(ctx context.Context) ([]domain.PlatformView, error)

func (f listerFunc) GetAll(ctx context.Context) ([]domain.PlatformView, error) {
	return f(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs a server on a loopback port and returns a connected client.
func startServer(t *testing.T, lister PlatformLister) *grpc.ClientConn {
	t.Helper()

	srv := NewServer(ServerConfig{
		Host:   "127.0.0.1",
		Port:   0,
		Reader: NewReader(lister, discardLogger()),
		Logger: discardLogger(),
	})

	lis, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Run(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("gRPC server did not stop")
		}
	})

	return conn
}

func TestNewServer_PanicsWithoutReader(t *testing.T) {
	assert.Panics(t, func() { NewServer(ServerConfig{}) })
}

func TestNewReader_PanicsWithoutLister(t *testing.T) {
	assert.Panics(t, func() { NewReader(nil, nil) })
}

func TestServerAddr(t *testing.T) {
	srv := NewServer(ServerConfig{
		Host:   "::1",
		Port:   9090,
		Reader: NewReader(listerFunc(func(context.Context) ([]domain.PlatformView, error) { return nil, nil }), nil),
	})

	assert.Equal(t, "[::1]:9090", srv.Addr())
}

func TestGetAllPlatforms(t *testing.T) {
	want := []domain.PlatformView{
		{ID: 1, Name: "PS5", Publisher: "Sony", Cost: 499.99},
		{ID: 2, Name: "Switch", Publisher: "Nintendo", Cost: 299},
	}

	conn := startServer(t, listerFunc(func(context.Context) ([]domain.PlatformView, error) {
		return want, nil
	}))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	got, err := GetAllPlatforms(ctx, conn)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetAllPlatforms_Empty(t *testing.T) {
	conn := startServer(t, listerFunc(func(context.Context) ([]domain.PlatformView, error) {
		return nil, nil
	}))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	got, err := GetAllPlatforms(ctx, conn)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetAllPlatforms_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"store failure", domain.NewPersistenceError("get all", errors.New("disk I/O error")), codes.Internal},
		{"unavailable", domain.NewUnavailableError("postgres", "connection refused"), codes.Unavailable},
		{"not found", domain.NewNotFoundError("platform", "1"), codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startServer(t, listerFunc(func(context.Context) ([]domain.PlatformView, error) {
				return nil, tt.err
			}))

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			_, err := GetAllPlatforms(ctx, conn)

			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
			assert.NotContains(t, status.Convert(err).Message(), "disk")
		})
	}
}

func TestHealthService(t *testing.T) {
	conn := startServer(t, listerFunc(func(context.Context) ([]domain.PlatformView, error) {
		return nil, nil
	}))

	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	for _, service := range []string{"", ServiceName} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})

		require.NoError(t, err, "service %q", service)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}

func TestServerRun_StopsOnCancel(t *testing.T) {
	srv := NewServer(ServerConfig{
		Host:   "127.0.0.1",
		Reader: NewReader(listerFunc(func(context.Context) ([]domain.PlatformView, error) { return nil, nil }), nil),
		Logger: discardLogger(),
	})

	lis, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Run(ctx, lis) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestDecodePlatforms_RejectsNonStruct(t *testing.T) {
	list, err := structpb.NewList([]any{"not a platform"})
	require.NoError(t, err)

	_, err = DecodePlatforms(list)

	require.Error(t, err)
}

func TestEncodePlatforms(t *testing.T) {
	list, err := EncodePlatforms([]domain.PlatformView{{ID: 3, Name: "Xbox", Publisher: "Microsoft", Cost: 0}})
	require.NoError(t, err)
	require.Len(t, list.GetValues(), 1)

	fields := list.GetValues()[0].GetStructValue().GetFields()
	assert.InDelta(t, 3, fields["id"].GetNumberValue(), 0)
	assert.Equal(t, "Xbox", fields["name"].GetStringValue())
	assert.Equal(t, "Microsoft", fields["publisher"].GetStringValue())
}
