package core

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestDialClient(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := DialClient(ctx, lis.Addr().String(), ClientOptions{})
	if err != nil {
		t.Fatalf("DialClient: %v", err)
	}
	defer c.Close()
	if c.Conn() == nil {
		t.Error("Conn() = nil")
	}

	// Broker reports NOT_SERVING: the dial must fail and leave nothing open.
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shortCtx, shortCancel := context.WithTimeout(ctx, 2*time.Second)
	defer shortCancel()
	if _, err := DialClient(shortCtx, lis.Addr().String(), ClientOptions{}); err == nil {
		t.Error("expected an error from a NOT_SERVING broker")
	}
}
